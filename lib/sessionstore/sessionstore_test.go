package sessionstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testSession() Session {
	return Session{
		Cookies: []Cookie{
			{
				Url:      "https://secure.nnn.ed.jp/mypage/",
				Name:     "laravel_session",
				Value:    "abc",
				Path:     "/",
				Expires:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
				Secure:   true,
				HttpOnly: true,
			},
			{
				Url:   "https://secure.nnn.ed.jp/mypage/login",
				Name:  "XSRF-TOKEN",
				Value: "xyz",
				Path:  "/mypage",
			},
		},
	}
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, found, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, found)

	original := testSession()
	err = store.Save(ctx, original)
	if err != nil {
		t.Fatal(err)
	}

	loaded, found, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, found)
	if diff := cmp.Diff(original, loaded); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}

	overwritten := Session{Cookies: original.Cookies[:1]}
	err = store.Save(ctx, overwritten)
	if err != nil {
		t.Fatal(err)
	}
	loaded, _, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, loaded.Cookies, 1)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	testStore(t, NewFileStore(path))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	err := os.WriteFile(path, []byte("not json"), 0600)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = NewFileStore(path).Load(context.Background())
	require.ErrorIs(t, err, ErrStorage)
}

func TestFileStoreUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "cookies.json")
	err := NewFileStore(path).Save(context.Background(), testSession())
	require.ErrorIs(t, err, ErrStorage)
}

func TestSqliteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := OpenSqliteStore(context.Background(), path, "N12345")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	testStore(t, store)
}

func TestSqliteStoreNamesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	a, err := OpenSqliteStore(ctx, path, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := OpenSqliteStore(ctx, path, "b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	err = a.Save(ctx, testSession())
	if err != nil {
		t.Fatal(err)
	}
	_, found, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, found)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, close, err := Open(ctx, Config{Path: filepath.Join(dir, "c.json")})
	if err != nil {
		t.Fatal(err)
	}
	require.IsType(t, FileStore{}, store)
	require.NoError(t, close())

	store, close, err = Open(ctx, Config{Driver: DRIVER_SQLITE, Path: filepath.Join(dir, "s.db")})
	if err != nil {
		t.Fatal(err)
	}
	require.IsType(t, SqliteStore{}, store)
	require.NoError(t, close())

	_, _, err = Open(ctx, Config{Driver: "redis"})
	require.Error(t, err)
}
