package usecase

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

const stagingPrefix = ".fontprov-staging-"

// installer writes verified payloads into the installation directory. Every
// file is first written into a staging directory on the same filesystem and
// then renamed into place, so a reader never sees a half-written font.
type installer struct {
	dir      string
	staging  string
	manifest *manifest

	created  []string
	replaced []string
}

func newInstaller(ctx context.Context, dir, runID string) (*installer, error) {
	logger := ctxlog.From(ctx)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, goerr.Wrap(model.ErrInstallWriteFailure, "failed to create installation directory",
			goerr.V("dir", dir), goerr.V("cause", err.Error()))
	}

	// Staging left behind by a killed run is never part of the installed set
	stale, err := filepath.Glob(filepath.Join(dir, stagingPrefix+"*"))
	if err != nil {
		return nil, goerr.Wrap(model.ErrInstallWriteFailure, "failed to look up stale staging", goerr.V("dir", dir))
	}
	for _, path := range stale {
		logger.Warn("Removing stale staging directory", "path", path)
		if err := os.RemoveAll(path); err != nil {
			return nil, goerr.Wrap(model.ErrInstallWriteFailure, "failed to remove stale staging",
				goerr.V("path", path), goerr.V("cause", err.Error()))
		}
	}

	staging := filepath.Join(dir, stagingPrefix+runID)
	if err := os.Mkdir(staging, 0700); err != nil {
		return nil, goerr.Wrap(model.ErrInstallWriteFailure, "failed to create staging directory",
			goerr.V("path", staging), goerr.V("cause", err.Error()))
	}

	m, err := loadManifest(dir)
	if err != nil {
		_ = os.RemoveAll(staging)
		return nil, goerr.Wrap(model.ErrInstallWriteFailure, "failed to load ownership manifest",
			goerr.V("cause", err.Error()))
	}

	return &installer{
		dir:      dir,
		staging:  staging,
		manifest: m,
	}, nil
}

// install places data under name. It reports unchanged when an identical file
// is already there.
func (i *installer) install(name string, data []byte) (unchanged bool, err error) {
	dest := filepath.Join(i.dir, name)

	existing, err := os.ReadFile(dest)
	exists := err == nil
	switch {
	case exists:
		if bytes.Equal(existing, data) {
			return true, nil
		}
		if !i.manifest.owns(name) {
			return false, goerr.Wrap(model.ErrNameCollision, "an unrelated font already uses this file name",
				goerr.V("file", dest))
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return false, goerr.Wrap(model.ErrInstallWriteFailure, "failed to inspect existing file",
			goerr.V("file", dest), goerr.V("cause", err.Error()))
	}

	part := filepath.Join(i.staging, name+".part")
	if err := os.WriteFile(part, data, 0644); err != nil {
		return false, goerr.Wrap(model.ErrInstallWriteFailure, "failed to write staged file",
			goerr.V("file", part), goerr.V("cause", err.Error()))
	}

	if exists {
		if err := os.Rename(dest, i.backupPath(name)); err != nil {
			return false, goerr.Wrap(model.ErrInstallWriteFailure, "failed to back up previous version",
				goerr.V("file", dest), goerr.V("cause", err.Error()))
		}
	}
	if err := os.Rename(part, dest); err != nil {
		if exists {
			_ = os.Rename(i.backupPath(name), dest)
		}
		return false, goerr.Wrap(model.ErrInstallWriteFailure, "failed to move staged file into place",
			goerr.V("file", dest), goerr.V("cause", err.Error()))
	}

	if exists {
		i.replaced = append(i.replaced, name)
	} else {
		i.created = append(i.created, name)
	}
	i.manifest.set(name, digest(data))
	return false, nil
}

// commit persists the ownership manifest and drops the staging directory.
// On error the staging directory, including backups, is kept for rollback.
func (i *installer) commit() error {
	raw, err := i.manifest.encode()
	if err != nil {
		return goerr.Wrap(model.ErrInstallWriteFailure, "failed to encode manifest", goerr.V("cause", err.Error()))
	}

	part := filepath.Join(i.staging, ManifestFileName+".part")
	if err := os.WriteFile(part, raw, 0644); err != nil {
		return goerr.Wrap(model.ErrInstallWriteFailure, "failed to write manifest",
			goerr.V("file", part), goerr.V("cause", err.Error()))
	}
	if err := os.Rename(part, filepath.Join(i.dir, ManifestFileName)); err != nil {
		return goerr.Wrap(model.ErrInstallWriteFailure, "failed to move manifest into place",
			goerr.V("cause", err.Error()))
	}

	i.cleanup()
	return nil
}

// rollback undoes every install of this run: new files are removed and
// replaced files are restored from their backups
func (i *installer) rollback(ctx context.Context) {
	logger := ctxlog.From(ctx)
	defer i.cleanup()

	for _, name := range i.created {
		if err := os.Remove(filepath.Join(i.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Error("Failed to remove file during rollback", "file", name, "error", err)
		}
	}
	for _, name := range i.replaced {
		if err := os.Rename(i.backupPath(name), filepath.Join(i.dir, name)); err != nil {
			logger.Error("Failed to restore file during rollback", "file", name, "error", err)
		}
	}

	logger.Info("Rolled back installation",
		"removed", len(i.created),
		"restored", len(i.replaced),
	)
	i.created, i.replaced = nil, nil
}

func (i *installer) cleanup() {
	_ = os.RemoveAll(i.staging)
}

func (i *installer) backupPath(name string) string {
	return filepath.Join(i.staging, "backup-"+name)
}
