package mypage

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordingJar(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	jar, err := newRecordingJar()
	if err != nil {
		t.Fatal(err)
	}
	jar.now = func() time.Time { return now }

	u, _ := url.Parse("https://secure.nnn.ed.jp/mypage/login")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "laravel_session", Value: "first", Path: "/"},
		{Name: "XSRF-TOKEN", Value: "token", Path: "/", MaxAge: 3600},
		{Name: "stale", Value: "gone", Path: "/", Expires: now.Add(-time.Hour)},
	})
	jar.SetCookies(u, []*http.Cookie{
		{Name: "laravel_session", Value: "second", Path: "/"},
	})

	session := jar.Snapshot()
	require.Len(t, session.Cookies, 2)

	values := map[string]string{}
	for _, c := range session.Cookies {
		values[c.Name] = c.Value
		if c.Name == "XSRF-TOKEN" {
			require.Equal(t, now.Add(time.Hour), c.Expires)
		}
	}
	require.Equal(t, map[string]string{
		"laravel_session": "second",
		"XSRF-TOKEN":      "token",
	}, values)

	jar.SetCookies(u, []*http.Cookie{{Name: "XSRF-TOKEN", Path: "/", MaxAge: -1}})
	require.Len(t, jar.Snapshot().Cookies, 1)

	now = now.Add(2 * time.Hour)
	require.Len(t, jar.Snapshot().Cookies, 1)
}

func TestRecordingJarRestore(t *testing.T) {
	original, err := newRecordingJar()
	if err != nil {
		t.Fatal(err)
	}
	u, _ := url.Parse("https://s-secure.nnn.ed.jp/mypage/")
	original.SetCookies(u, []*http.Cookie{
		{Name: "laravel_session", Value: "abc", Path: "/"},
	})

	restored, err := newRecordingJar()
	if err != nil {
		t.Fatal(err)
	}
	err = restored.Restore(original.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	cookies := restored.Cookies(u)
	require.Len(t, cookies, 1)
	require.Equal(t, "abc", cookies[0].Value)
	require.Equal(t, original.Snapshot(), restored.Snapshot())

	other, _ := url.Parse("https://secure.nnn.ed.jp/mypage/")
	require.Empty(t, restored.Cookies(other))
}
