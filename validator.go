package tabql

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nao1215/tabql/domain/model"
)

// validator handles validation logic for Builder
type validator struct{}

// newValidator creates a new validator instance
func newValidator() *validator {
	return &validator{}
}

// validatePath validates a single source path. The stdin marker is always valid.
func (v *validator) validatePath(path string) error {
	if path == model.StdinMarker {
		return nil
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("failed to load file: path does not exist: %s", path)
		}
		return fmt.Errorf("failed to stat path %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("source is a directory: %s", path)
	}
	return nil
}

// validateReader validates a reader input
func (v *validator) validateReader(reader io.Reader, name string) error {
	if reader == nil {
		return errors.New("reader cannot be nil")
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("name must be specified for reader input")
	}
	return nil
}

// validateSources checks that at least one source was added.
func (v *validator) validateSources(sources []*source) error {
	if len(sources) == 0 {
		return errors.New("no sources given")
	}
	stdin := 0
	for _, s := range sources {
		if s.reader == nil && s.file.IsStdin() {
			stdin++
		}
	}
	if stdin > 1 {
		return errors.New("standard input can be used as a source only once")
	}
	return nil
}
