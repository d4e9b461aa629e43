package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestCollectInputs(t *testing.T) {
	root := t.TempDir()
	a := touch(t, filepath.Join(root, "a.heic"))
	b := touch(t, filepath.Join(root, "nested", "deeper", "b.HEIF"))
	c := touch(t, filepath.Join(root, "nested", "c.avif"))
	touch(t, filepath.Join(root, "nested", "notes.txt"))
	single := touch(t, filepath.Join(t.TempDir(), "explicit.bin"))

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "directory walk", args: []string{root}, want: []string{a, c, b}},
		{name: "explicit file any extension", args: []string{single}, want: []string{single}},
		{name: "recursive glob", args: []string{filepath.Join(root, "**", "*.avif")}, want: []string{c}},
		{name: "duplicates collapse", args: []string{a, a, filepath.Join(root, "*.heic")}, want: []string{a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectInputs(context.Background(), tt.args)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestCollectInputsErrors(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "readme.md"))

	_, err := collectInputs(context.Background(), []string{filepath.Join(root, "missing.heic")})
	assert.Error(t, err)

	_, err = collectInputs(context.Background(), []string{root})
	assert.ErrorIs(t, err, errNoInputs)

	_, err = collectInputs(context.Background(), []string{filepath.Join(root, "*.heic")})
	assert.ErrorIs(t, err, errNoInputs)
}
