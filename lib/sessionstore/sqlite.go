package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SqliteStore keeps the session as a single row of a sqlite database.
type SqliteStore struct {
	db   *sql.DB
	name string
}

func OpenSqliteStore(ctx context.Context, path, name string) (SqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return SqliteStore{}, storageError("open "+path, err)
	}
	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()
		return SqliteStore{}, storageError("apply schema", err)
	}
	return SqliteStore{db: db, name: name}, nil
}

func (s SqliteStore) Close() error {
	return s.db.Close()
}

func (s SqliteStore) Load(ctx context.Context) (Session, bool, error) {
	var serialized string
	err := s.db.QueryRowContext(
		ctx,
		"select cookies from session where name = ?",
		s.name,
	).Scan(&serialized)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, storageError("query session", err)
	}

	var session Session
	err = json.Unmarshal([]byte(serialized), &session)
	if err != nil {
		return Session{}, false, storageError("decode session", err)
	}
	return session, true, nil
}

func (s SqliteStore) Save(ctx context.Context, session Session) error {
	serialized, err := json.Marshal(session)
	if err != nil {
		return storageError("encode session", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`insert into session (name, cookies, updated_at) values (?, ?, ?)
		on conflict (name) do update set
			cookies = excluded.cookies,
			updated_at = excluded.updated_at`,
		s.name,
		string(serialized),
		time.Now().Unix(),
	)
	if err != nil {
		return storageError("upsert session", err)
	}
	return nil
}
