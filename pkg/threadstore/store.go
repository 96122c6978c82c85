// Package threadstore remembers which thread ids each GraphDB user created.
//
// The Assistants API cannot list threads, so the ids are kept in a small
// YAML file mapping username to ids in creation order. The file is read once
// and rewritten whole after every change. It is an index, not the source of
// truth: ids may point at threads deleted elsewhere and callers re-validate
// them against the backend. A single process is assumed; there is no locking.
package threadstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/harun/ttyg/internal/observability"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Store is the on-disk thread registry
type Store struct {
	path    string
	threads map[string][]string
}

// Open loads the registry at path. A missing file is an empty registry.
func Open(path string) (*Store, error) {
	s := &Store{path: path, threads: map[string][]string{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read thread registry: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.threads); err != nil {
		return nil, fmt.Errorf("failed to parse thread registry %s: %w", path, err)
	}
	if s.threads == nil {
		// empty file
		s.threads = map[string][]string{}
	}

	log.Debug().Str("path", path).Int("users", len(s.threads)).Msg("Thread registry loaded")
	return s, nil
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// List returns the thread ids of a user in insertion order
func (s *Store) List(username string) []string {
	ids := s.threads[username]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Put appends a thread id for a user and persists the registry. On a
// failed write the registry is left as it was.
func (s *Store) Put(username, threadID string) error {
	prev, had := s.threads[username]
	ids := make([]string, 0, len(prev)+1)
	ids = append(append(ids, prev...), threadID)
	return s.update(username, ids, prev, had)
}

// Remove drops the first occurrence of a thread id for a user. Unknown ids
// are a no-op and do not touch the file.
func (s *Store) Remove(username, threadID string) error {
	ids, ok := s.threads[username]
	if !ok {
		return nil
	}
	for i, id := range ids {
		if id == threadID {
			next := make([]string, 0, len(ids)-1)
			next = append(append(next, ids[:i]...), ids[i+1:]...)
			return s.update(username, next, ids, true)
		}
	}
	return nil
}

// update installs ids for a user and saves, restoring prev if the write fails
func (s *Store) update(username string, ids, prev []string, had bool) error {
	s.threads[username] = ids
	if err := s.save(); err != nil {
		if had {
			s.threads[username] = prev
		} else {
			delete(s.threads, username)
		}
		return err
	}
	return nil
}

// save rewrites the whole file via a temp file and rename, so an interrupt
// leaves either the old or the new registry behind.
func (s *Store) save() (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRegistrySave(time.Since(start), err == nil)
	}()

	data, err := yaml.Marshal(s.threads)
	if err != nil {
		return fmt.Errorf("failed to encode thread registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write thread registry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err = tmp.Chmod(s.fileMode()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write thread registry: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write thread registry: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write thread registry: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace thread registry: %w", err)
	}

	log.Debug().Str("path", s.path).Msg("Thread registry saved")
	return nil
}

// fileMode keeps the permissions of an existing registry; new files get 0644
func (s *Store) fileMode() fs.FileMode {
	if info, err := os.Stat(s.path); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}
