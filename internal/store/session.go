package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aisentools/msfix/internal/fsutil"
	"github.com/aisentools/msfix/internal/session"
)

// SaveSession persists the current working set so the next invocation can
// reopen it.
func (fs *FileStore) SaveSession() error {
	if fs.opts.SessionFile == "" {
		return nil
	}
	data, err := yaml.Marshal(session.Capture(fs))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := fsutil.WriteFileAtomic(fs.Abs(fs.opts.SessionFile), data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadSession reads the persisted working set. A missing file is an empty
// snapshot.
func (fs *FileStore) LoadSession() (session.Snapshot, error) {
	var snap session.Snapshot
	if fs.opts.SessionFile == "" {
		return snap, nil
	}
	data, err := os.ReadFile(fs.Abs(fs.opts.SessionFile))
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("read session: %w", err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode session: %w", err)
	}
	return snap, nil
}

// RestoreSession reopens the persisted working set.
func (fs *FileStore) RestoreSession() error {
	snap, err := fs.LoadSession()
	if err != nil {
		return err
	}
	return session.Restore(fs, snap)
}
