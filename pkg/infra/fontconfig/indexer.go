package fontconfig

import (
	"context"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Runner executes an external command and returns its combined output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Indexer drives the host fontconfig installation through fc-cache and fc-list
type Indexer struct {
	runner Runner
	dirs   []string
}

// Option configures Indexer
type Option func(*Indexer)

// WithRunner replaces the command runner
func WithRunner(runner Runner) Option {
	return func(x *Indexer) {
		x.runner = runner
	}
}

// WithPreferredDirs makes Lookup prefer matches inside dirs
func WithPreferredDirs(dirs ...string) Option {
	return func(x *Indexer) {
		x.dirs = append(x.dirs, dirs...)
	}
}

// New creates a fontconfig indexer
func New(opts ...Option) *Indexer {
	x := &Indexer{runner: execRunner{}}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Available reports whether fc-cache can be found in PATH
func Available() bool {
	_, err := exec.LookPath("fc-cache")
	return err == nil
}

// Rebuild runs fc-cache for dir
func (x *Indexer) Rebuild(ctx context.Context, dir string) error {
	out, err := x.runner.Run(ctx, "fc-cache", "-f", dir)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return goerr.Wrap(model.ErrIndexRebuildFailure, "fc-cache failed",
			goerr.V("dir", dir), goerr.V("cause", err.Error()), goerr.V("output", strings.TrimSpace(string(out))))
	}
	return nil
}

// Lookup asks fc-list for a font file of family and style
func (x *Indexer) Lookup(ctx context.Context, family, style string) (string, error) {
	pattern := ":family=" + escape(family) + ":style=" + escape(style)
	out, err := x.runner.Run(ctx, "fc-list", "--format", "%{file}\n", pattern)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", goerr.Wrap(err, "fc-list failed",
			goerr.V("pattern", pattern), goerr.V("output", strings.TrimSpace(string(out))))
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	if len(files) == 0 {
		return "", goerr.Wrap(model.ErrFontNotFound, "fontconfig has no matching font",
			goerr.V("family", family), goerr.V("style", style))
	}
	sort.Strings(files)

	for _, dir := range x.dirs {
		prefix := filepath.Clean(dir) + string(filepath.Separator)
		for _, f := range files {
			if strings.HasPrefix(f, prefix) {
				return f, nil
			}
		}
	}
	return files[0], nil
}

// escape quotes characters that are special in a fontconfig pattern
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '-', ':', ',', '=':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
