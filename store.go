package tabql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// sqliteSideFiles are the suffixes of files SQLite may create next to a database.
var sqliteSideFiles = []string{"-journal", "-wal", "-shm"}

// Store is the SQLite database a run loads into and queries.
type Store struct {
	db        *sql.DB
	path      string
	ephemeral bool
	logger    *slog.Logger
	closed    bool
}

// OpenStore opens the store at path, creating it if needed. An empty path
// creates an ephemeral store in the system temporary directory that is
// removed by Close. A leading "~" in path is expanded to the home directory.
func OpenStore(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = discardLogger()
	}

	s := &Store{logger: logger}
	if path == "" {
		f, err := os.CreateTemp("", "tabql-*.db")
		if err != nil {
			return nil, storeErr("create temporary store", "", err)
		}
		s.path = f.Name()
		s.ephemeral = true
		if err := f.Close(); err != nil {
			return nil, errors.Join(storeErr("create temporary store", "", err), s.removeFiles())
		}
	} else {
		full, err := expandPath(path)
		if err != nil {
			return nil, storeErr("resolve store path", "", err)
		}
		s.path = full
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, s.abandon(storeErr("open store", "", err))
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, s.abandon(storeErr("open store", "", err))
	}
	s.db = db

	logger.Debug("opened store", slog.String("path", s.path), slog.Bool("ephemeral", s.ephemeral))
	return s, nil
}

// DB returns the database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the absolute path of the database file.
func (s *Store) Path() string {
	return s.path
}

// Ephemeral reports whether Close deletes the database file.
func (s *Store) Ephemeral() bool {
	return s.ephemeral
}

// Close closes the database. Ephemeral stores are deleted together with
// their journal files, also when closing the handle fails.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.db.Close(); err != nil {
		errs = append(errs, storeErr("close store", "", err))
	}
	if s.ephemeral {
		if err := s.removeFiles(); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Debug("closed store", slog.String("path", s.path), slog.Bool("removed", s.ephemeral))
	return errors.Join(errs...)
}

// WithStore opens the store at path, passes it to fn and closes it
// afterwards, whatever fn returns. Errors from fn and Close are joined.
func WithStore(ctx context.Context, path string, logger *slog.Logger, fn func(*Store) error) (err error) {
	s, err := OpenStore(ctx, path, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}

// abandon removes an ephemeral store that failed to open.
func (s *Store) abandon(err error) error {
	if !s.ephemeral {
		return err
	}
	return errors.Join(err, s.removeFiles())
}

func (s *Store) removeFiles() error {
	var errs []error
	for _, p := range append([]string{s.path}, sideFilePaths(s.path)...) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func sideFilePaths(path string) []string {
	paths := make([]string, len(sqliteSideFiles))
	for i, suffix := range sqliteSideFiles {
		paths[i] = path + suffix
	}
	return paths
}

// expandPath expands a leading "~" and makes path absolute.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}
