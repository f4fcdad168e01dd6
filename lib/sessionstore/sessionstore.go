// Package sessionstore persists the portal's session cookies between runs.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrStorage wraps every failure to read or write a stored session.
var ErrStorage = errors.New("session storage")

// Cookie is a cookie together with the url it was received from.
type Cookie struct {
	Url      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// HttpCookie converts back into the form a cookie jar accepts.
func (c Cookie) HttpCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

// Session is an opaque snapshot of a cookie jar, there is no compatibility
// guarantee between versions of this package.
type Session struct {
	Cookies []Cookie `json:"cookies"`
}

// Store loads and saves a single session.
type Store interface {
	// Load returns false if nothing has been saved yet, this is not an error.
	Load(ctx context.Context) (Session, bool, error)
	// Save overwrites whatever was stored before.
	Save(ctx context.Context, session Session) error
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

type Config struct {
	// Driver is either "file" (the default) or "sqlite".
	Driver string `json:"driver"`
	Path   string `json:"path"`
	// Name is the row key used by the sqlite driver.
	Name string `json:"name"`
}

const (
	DRIVER_FILE   = "file"
	DRIVER_SQLITE = "sqlite"

	defaultFilePath   = "cookies.json"
	defaultSqlitePath = "session.db"
	defaultName       = "default"
)

// Open creates the store described by cfg, close must be called once the
// store is no longer needed.
func Open(ctx context.Context, cfg Config) (store Store, close func() error, err error) {
	switch cfg.Driver {
	case "", DRIVER_FILE:
		path := cfg.Path
		if path == "" {
			path = defaultFilePath
		}
		return NewFileStore(path), func() error { return nil }, nil
	case DRIVER_SQLITE:
		path := cfg.Path
		if path == "" {
			path = defaultSqlitePath
		}
		name := cfg.Name
		if name == "" {
			name = defaultName
		}
		s, err := OpenSqliteStore(ctx, path, name)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver '%s'", cfg.Driver)
	}
}
