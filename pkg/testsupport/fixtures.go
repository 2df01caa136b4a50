package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/layout"
)

// LoadLayoutSet reads every layout page under dir. Testing helpers fail the
// test on error to keep contract tests concise.
func LoadLayoutSet(t *testing.T, dir string) *layout.Set {
	t.Helper()

	set, err := LoadLayoutSetFromPath(dir)
	if err != nil {
		t.Fatalf("load layouts: %v", err)
	}
	return set
}

// LoadLayoutSetFromPath returns a layout set without requiring testing.T, so
// callers can wire fixtures in setup functions.
func LoadLayoutSetFromPath(dir string) (*layout.Set, error) {
	if dir == "" {
		return nil, errors.New("testsupport: layout directory is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("testsupport: stat layouts: %w", err)
	}
	set, err := layout.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("testsupport: load layouts: %w", err)
	}
	return set, nil
}

// MustLoadDataModel reads a nested JSON document and flattens it into a data
// model.
func MustLoadDataModel(t *testing.T, path string) formdata.DataModel {
	t.Helper()

	data, err := LoadDataModel(path)
	if err != nil {
		t.Fatalf("load data model: %v", err)
	}
	return data
}

// LoadDataModel is the error-returning form of MustLoadDataModel.
func LoadDataModel(path string) (formdata.DataModel, error) {
	if path == "" {
		return nil, errors.New("testsupport: data model path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read data model: %w", err)
	}
	data, err := formdata.FromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("testsupport: parse data model: %w", err)
	}
	return data, nil
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// Diff returns a go-cmp diff if the values differ.
func Diff(want, got any, opts ...cmp.Option) string {
	return cmp.Diff(want, got, opts...)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
