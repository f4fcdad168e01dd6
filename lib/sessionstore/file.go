package sessionstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

// FileStore keeps the session as JSON in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) FileStore {
	return FileStore{path: path}
}

func (s FileStore) Load(ctx context.Context) (Session, bool, error) {
	contents, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, storageError("read "+s.path, err)
	}

	var session Session
	err = json.Unmarshal(contents, &session)
	if err != nil {
		return Session{}, false, storageError("decode "+s.path, err)
	}
	return session, true, nil
}

// Save writes to a temporary file first so a crash never leaves a
// half-written session behind.
func (s FileStore) Save(ctx context.Context, session Session) error {
	serialized, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return storageError("encode", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storageError("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(serialized)
	if err != nil {
		tmp.Close()
		return storageError("write "+tmp.Name(), err)
	}
	err = tmp.Close()
	if err != nil {
		return storageError("close "+tmp.Name(), err)
	}
	err = os.Chmod(tmp.Name(), 0600)
	if err != nil {
		return storageError("chmod "+tmp.Name(), err)
	}
	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return storageError("rename to "+s.path, err)
	}
	return nil
}
