package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"

	"github.com/roach88/shorthand/internal/ir"
)

// Snapshot renders a result as golden text. A failed statement snapshots as
// its error code only, so golden files do not depend on message wording.
func Snapshot(r *Result) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", r.Name)
	if r.ErrorCode != "" {
		fmt.Fprintf(&buf, "error: %s\n", r.ErrorCode)
		return buf.Bytes(), nil
	}

	args, err := ir.MarshalCanonical(normalizeArgs(r.Args))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", r.Name, err)
	}
	fmt.Fprintf(&buf, "render: %s\n", r.SQL)
	fmt.Fprintf(&buf, "template: %s\n", r.Template)
	fmt.Fprintf(&buf, "bind: %s\n", r.BindSQL)
	fmt.Fprintf(&buf, "args: %s\n", args)
	if len(r.Unassigned) > 0 {
		fmt.Fprintf(&buf, "unassigned: %s\n", strings.Join(r.Unassigned, ", "))
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, Options{})
	if err != nil {
		return nil, err
	}

	snapshot, err := Snapshot(result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
	return result, nil
}

// GoldenPath returns the golden file of the named scenario under dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// CompareGolden compares r's snapshot with its golden file under dir on fsys.
// With update it writes the snapshot instead and reports a match. A missing
// golden file is a mismatch.
func CompareGolden(fsys afero.Fs, dir string, r *Result, update bool) (bool, error) {
	snapshot, err := Snapshot(r)
	if err != nil {
		return false, err
	}
	path := GoldenPath(dir, r.Name)

	if update {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create golden dir: %w", err)
		}
		if err := afero.WriteFile(fsys, path, snapshot, 0o644); err != nil {
			return false, fmt.Errorf("write golden file: %w", err)
		}
		return true, nil
	}

	want, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read golden file: %w", err)
	}
	return bytes.Equal(want, snapshot), nil
}
