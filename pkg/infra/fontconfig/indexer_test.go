package fontconfig_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
	"github.com/m-mizutani/fontprov/pkg/infra/fontconfig"
)

type fakeRunner struct {
	calls  []string
	output map[string]string
	err    error
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	call := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, call)
	return []byte(r.output[name]), r.err
}

func TestIndexer_Rebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("runs fc-cache on the directory", func(t *testing.T) {
		runner := &fakeRunner{}
		gt.NoError(t, fontconfig.New(fontconfig.WithRunner(runner)).Rebuild(ctx, "/fonts/fontprov"))
		gt.A(t, runner.calls).Length(1)
		gt.Equal(t, runner.calls[0], "fc-cache -f /fonts/fontprov")
	})

	t.Run("failure is an index rebuild failure", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1"), output: map[string]string{"fc-cache": "permission denied"}}
		err := fontconfig.New(fontconfig.WithRunner(runner)).Rebuild(ctx, "/fonts/fontprov")
		gt.True(t, errors.Is(err, model.ErrIndexRebuildFailure))
	})
}

func TestIndexer_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("escapes the pattern", func(t *testing.T) {
		runner := &fakeRunner{output: map[string]string{"fc-list": "/usr/share/fonts/Noto-Sans-Bold.ttf\n"}}
		path, err := fontconfig.New(fontconfig.WithRunner(runner)).Lookup(ctx, "Noto Sans-CJK", "Bold")
		gt.NoError(t, err)
		gt.Equal(t, path, "/usr/share/fonts/Noto-Sans-Bold.ttf")
		gt.Equal(t, runner.calls[0], "fc-list --format %{file}\n :family=Noto Sans\\-CJK:style=Bold")
	})

	t.Run("prefers the install dir", func(t *testing.T) {
		runner := &fakeRunner{output: map[string]string{
			"fc-list": "/usr/share/fonts/a/Montserrat-Bold.ttf\n/opt/fonts/fontprov/Montserrat-Bold.ttf\n",
		}}
		indexer := fontconfig.New(fontconfig.WithRunner(runner), fontconfig.WithPreferredDirs("/opt/fonts/fontprov"))
		path, err := indexer.Lookup(ctx, "Montserrat", "Bold")
		gt.NoError(t, err)
		gt.Equal(t, path, "/opt/fonts/fontprov/Montserrat-Bold.ttf")
	})

	t.Run("no output is not found", func(t *testing.T) {
		runner := &fakeRunner{output: map[string]string{"fc-list": "\n"}}
		_, err := fontconfig.New(fontconfig.WithRunner(runner)).Lookup(ctx, "Montserrat", "Bold")
		gt.True(t, errors.Is(err, model.ErrFontNotFound))
	})
}
