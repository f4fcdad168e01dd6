package mypage

import (
	"fmt"
	"mypage-client/lib/sessionstore"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// recordingJar is a cookie jar that remembers every cookie it was given so
// the session can be written out and restored later, net/http/cookiejar
// cannot be enumerated by itself.
type recordingJar struct {
	jar     *cookiejar.Jar
	cookies []sessionstore.Cookie
	now     func() time.Time
}

func newRecordingJar() (*recordingJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &recordingJar{jar: jar, now: time.Now}, nil
}

func sameCookie(a sessionstore.Cookie, host, path, name string) bool {
	return a.Name == name && a.Path == path && cookieHost(a) == host
}

func cookieHost(c sessionstore.Cookie) string {
	if c.Domain != "" {
		return strings.TrimPrefix(strings.ToLower(c.Domain), ".")
	}
	u, err := url.Parse(c.Url)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func (j *recordingJar) forget(host, path, name string) {
	kept := j.cookies[:0]
	for _, c := range j.cookies {
		if !sameCookie(c, host, path, name) {
			kept = append(kept, c)
		}
	}
	j.cookies = kept
}

func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	now := j.now()
	for _, c := range cookies {
		recorded := sessionstore.Cookie{
			Url:      u.Scheme + "://" + u.Host + u.Path,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.MaxAge > 0 {
			recorded.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}

		host := cookieHost(recorded)
		j.forget(host, recorded.Path, recorded.Name)

		expired := c.MaxAge < 0 ||
			(!recorded.Expires.IsZero() && !recorded.Expires.After(now))
		if expired {
			continue
		}
		j.cookies = append(j.cookies, recorded)
	}
}

func (j *recordingJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Snapshot returns every cookie that has not expired yet.
func (j *recordingJar) Snapshot() sessionstore.Session {
	now := j.now()
	session := sessionstore.Session{Cookies: []sessionstore.Cookie{}}
	for _, c := range j.cookies {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		session.Cookies = append(session.Cookies, c)
	}
	return session
}

// Restore puts the cookies of a previously taken snapshot back into the jar.
func (j *recordingJar) Restore(session sessionstore.Session) error {
	for _, c := range session.Cookies {
		u, err := url.Parse(c.Url)
		if err != nil {
			return fmt.Errorf("parse cookie url '%s': %w", c.Url, err)
		}
		j.SetCookies(u, []*http.Cookie{c.HttpCookie()})
	}
	return nil
}
