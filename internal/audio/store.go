// Package audio attaches audio artifacts to annotated texts: it keeps the
// content-addressed repository of synthesised and recorded audio and binds
// repository entries to Words and segments.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/clara-project/clara-core/internal/adapter/postgres/audiofile"
	"github.com/clara-project/clara-core/internal/domain"
)

// index is the database side of the repository, satisfied by
// audiofile.Repo.
type index interface {
	Get(ctx context.Context, engine, language, voice, text string) (*audiofile.Record, error)
	Put(ctx context.Context, engine, language, voice, text, filePath string) (*audiofile.Record, error)
	DeleteFor(ctx context.Context, engine, language string) (int64, error)
}

// Store is the content-addressed audio repository: a managed file tree
// plus a database index keyed by (engine, language, voice, text).
type Store struct {
	baseDir string
	idx     index

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

func NewStore(baseDir string, idx index) *Store {
	return &Store{
		baseDir:  baseDir,
		idx:      idx,
		inFlight: make(map[string]*sync.Mutex),
	}
}

// Get returns the artifact path for a key, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, engine, language, voice, text string) (string, error) {
	rec, err := s.idx.Get(ctx, engine, language, voice, text)
	if err != nil {
		return "", err
	}
	return rec.FilePath, nil
}

// Put copies a source file into the managed tree and records it under the
// key. Concurrent puts for the same key are serialised, and a key that is
// already present keeps its existing artifact.
func (s *Store) Put(ctx context.Context, engine, language, voice, text, sourceFile string) (string, error) {
	unlock := s.lockKey(engine, language, voice, text)
	defer unlock()

	if existing, err := s.idx.Get(ctx, engine, language, voice, text); err == nil {
		return existing.FilePath, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	dir := filepath.Join(s.baseDir, engine, language, voice)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	dest := filepath.Join(dir, uuid.New().String()+".mp3")
	if err := copyFile(sourceFile, dest); err != nil {
		return "", fmt.Errorf("store audio artifact: %w", err)
	}

	rec, err := s.idx.Put(ctx, engine, language, voice, text, dest)
	if err != nil {
		os.Remove(dest)
		return "", err
	}
	return rec.FilePath, nil
}

// DeleteFor drops every index row for an engine and language and removes
// the matching file subtree.
func (s *Store) DeleteFor(ctx context.Context, engine, language string) (int64, error) {
	n, err := s.idx.DeleteFor(ctx, engine, language)
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, engine, language)); err != nil {
		return n, fmt.Errorf("remove audio tree: %w", err)
	}
	return n, nil
}

func (s *Store) lockKey(parts ...string) func() {
	key := filepath.Join(parts...)
	s.mu.Lock()
	m, ok := s.inFlight[key]
	if !ok {
		m = &sync.Mutex{}
		s.inFlight[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
