package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/gridstitch/internal/shared/paths"
)

var errNoInputs = errors.New("no input files")

// collectInputs expands the positional arguments into a sorted, de-duplicated
// list of files. Directories are walked for HEIF-family extensions; arguments
// containing glob metacharacters are expanded with doublestar (so "**"
// recurses). Plain files are taken as given, whatever their extension.
func collectInputs(ctx context.Context, args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		if doublestar.ValidatePattern(arg) && hasMeta(arg) {
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			files = append(files, matches...)
			continue
		}

		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := walkInputs(ctx, arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	for i, f := range files {
		files[i] = filepath.Clean(f)
	}
	slices.Sort(files)
	files = slices.Compact(files)
	if len(files) == 0 {
		return nil, errNoInputs
	}
	return files, nil
}

func walkInputs(ctx context.Context, root string) ([]string, error) {
	var (
		mu    sync.Mutex
		found []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() || !paths.IsInput(p) {
			return nil
		}
		mu.Lock()
		found = append(found, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return found, nil
}

func hasMeta(arg string) bool {
	for _, c := range arg {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
