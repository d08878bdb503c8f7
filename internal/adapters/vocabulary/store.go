package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/ports"
	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

const (
	vocabularyFileMode = 0o600
	vocabularyDirMode  = 0o700
	tempFilePattern    = ".vocabulary-*.toml.tmp"
)

// Store serves the control-channel vocabulary from a TOML file. A missing
// file means the built-in defaults; a broken file keeps whatever was loaded
// last.
type Store struct {
	path    string
	current atomic.Pointer[domain.Vocabulary]
	logger  *zap.Logger
}

var _ ports.Vocabulary = (*Store)(nil)

func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(path) != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve vocabulary path: %w", err)
		}
		path = filepath.Clean(absPath)
	}

	s := &Store{path: path, logger: logger.With(zap.String("vocabulary", path))}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Lookup(word string) (domain.ControlCommand, bool) {
	return s.Snapshot().Lookup(word)
}

func (s *Store) Snapshot() domain.Vocabulary {
	current := s.current.Load()
	if current == nil {
		return domain.DefaultVocabulary()
	}
	return *current
}

func (s *Store) Reload() error {
	vocabulary, err := Read(s.path)
	if err != nil {
		return err
	}

	s.current.Store(&vocabulary)
	return nil
}

// Watch reloads the vocabulary whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by rename
// are picked up too.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create vocabulary watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, vocabularyDirMode); err != nil {
		return fmt.Errorf("create vocabulary directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch vocabulary directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("vocabulary reload failed, keeping previous table", zap.Error(err))
				continue
			}
			s.logger.Info("vocabulary reloaded", zap.Strings("words", s.Snapshot().Words()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("vocabulary watcher error", zap.Error(err))
		}
	}
}

// Read decodes the vocabulary file at path, falling back to the defaults when
// path is empty or the file does not exist.
func Read(path string) (domain.Vocabulary, error) {
	if path == "" {
		return domain.DefaultVocabulary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultVocabulary(), nil
		}
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode vocabulary file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return nil, err
	}
	file.applyDefaults()

	return file.toVocabulary()
}

// Write atomically replaces the vocabulary file at path.
func Write(path string, vocabulary domain.Vocabulary) error {
	if err := vocabulary.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), vocabularyDirMode); err != nil {
		return fmt.Errorf("create vocabulary directory: %w", err)
	}

	data, err := toml.Marshal(toSchema(vocabulary))
	if err != nil {
		return fmt.Errorf("encode vocabulary file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp vocabulary file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp vocabulary file: %w", err)
	}

	if err := tempFile.Chmod(vocabularyFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp vocabulary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp vocabulary file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace vocabulary file: %w", err)
	}

	cleanup = false
	return nil
}
