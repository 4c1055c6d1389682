package tabql

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/tabql/domain/model"
)

func TestValidator_validatePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "ok.csv", []byte("a\n"))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "regular file", path: file},
		{name: "stdin marker", path: "-"},
		{name: "empty", path: "", wantErr: true},
		{name: "blank", path: "   ", wantErr: true},
		{name: "missing", path: filepath.Join(dir, "missing.csv"), wantErr: true},
		{name: "directory", path: dir, wantErr: true},
	}

	v := newValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.validatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidator_validateReader(t *testing.T) {
	t.Parallel()

	v := newValidator()
	if err := v.validateReader(strings.NewReader("a"), "x.csv"); err != nil {
		t.Errorf("validateReader() error = %v", err)
	}
	if err := v.validateReader(nil, "x.csv"); err == nil {
		t.Error("validateReader() should reject a nil reader")
	}
	if err := v.validateReader(strings.NewReader("a"), " "); err == nil {
		t.Error("validateReader() should reject a blank name")
	}
}

func TestValidator_validateSources(t *testing.T) {
	t.Parallel()

	stdin := &source{file: model.NewFile("-")}
	named := &source{file: model.NewFile("-"), reader: strings.NewReader("a")}
	file := &source{file: model.NewFile("a.csv")}

	tests := []struct {
		name    string
		sources []*source
		wantErr bool
	}{
		{name: "none", wantErr: true},
		{name: "one file", sources: []*source{file}},
		{name: "stdin once", sources: []*source{file, stdin}},
		{name: "stdin twice", sources: []*source{stdin, stdin}, wantErr: true},
		{name: "reader named dash is not stdin", sources: []*source{stdin, named}},
	}

	v := newValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.validateSources(tt.sources)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSources() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
