package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// maxMemberSize bounds how much of a single archive member is read
const maxMemberSize = 64 << 20

// memberPayload is what an archive yielded for one catalog asset
type memberPayload struct {
	name string
	data []byte
	err  error
}

// extractMembers reads, for each asset of the unit, the archive member it
// declares. Members not claimed by any asset are discarded. The result is
// index-aligned with assets.
func extractMembers(ctx context.Context, archive []byte, assets []model.FontAsset) ([]memberPayload, error) {
	logger := ctxlog.From(ctx)

	// Insecure member paths are filtered by safeMemberName below
	zipReader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, goerr.Wrap(model.ErrFormatMismatch, "failed to create zip reader",
			goerr.V("cause", err.Error()))
	}

	byPath := make(map[string]*zip.File)
	byBase := make(map[string]*zip.File)
	for _, file := range zipReader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name, ok := safeMemberName(file.Name)
		if !ok {
			logger.Warn("Ignoring archive member with unsafe path", "member", file.Name)
			continue
		}

		if _, dup := byPath[name]; !dup {
			byPath[name] = file
		}
		base := strings.ToLower(path.Base(name))
		if _, dup := byBase[base]; dup {
			logger.Debug("Archive holds several members with the same file name, keeping the first",
				"member", name)
			continue
		}
		byBase[base] = file
	}

	claimed := make(map[*zip.File]struct{})
	results := make([]memberPayload, len(assets))
	for i, asset := range assets {
		file := lookupMember(asset, byPath, byBase)
		if file == nil {
			results[i].err = goerr.Wrap(model.ErrSourceNotFound, "member not found in archive",
				goerr.V("member", declaredMember(asset)))
			continue
		}

		claimed[file] = struct{}{}
		results[i].name = file.Name
		results[i].data, results[i].err = readMember(file)
	}

	logger.Debug("Extracted archive members",
		"members", len(zipReader.File),
		"claimed", len(claimed),
		"discarded", countUnclaimed(zipReader.File, claimed),
	)

	return results, nil
}

// countUnclaimed counts the regular members no asset reads
func countUnclaimed(files []*zip.File, claimed map[*zip.File]struct{}) int {
	n := 0
	for _, file := range files {
		if file.FileInfo().IsDir() {
			continue
		}
		if _, ok := claimed[file]; !ok {
			n++
		}
	}
	return n
}

func declaredMember(asset model.FontAsset) string {
	if asset.Source.Member != "" {
		return asset.Source.Member
	}
	return asset.FileName()
}

func lookupMember(asset model.FontAsset, byPath, byBase map[string]*zip.File) *zip.File {
	member := declaredMember(asset)
	if strings.Contains(member, "/") {
		name, ok := safeMemberName(member)
		if !ok {
			return nil
		}
		return byPath[name]
	}
	return byBase[strings.ToLower(member)]
}

// safeMemberName normalizes an archive path and rejects absolute paths and
// paths escaping the archive root
func safeMemberName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return "", false
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

func readMember(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, goerr.Wrap(model.ErrFormatMismatch, "failed to open member in zip",
			goerr.V("member", file.Name), goerr.V("cause", err.Error()))
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxMemberSize+1))
	if err != nil {
		return nil, goerr.Wrap(model.ErrFormatMismatch, "failed to read member from zip",
			goerr.V("member", file.Name), goerr.V("cause", err.Error()))
	}
	if len(data) > maxMemberSize {
		return nil, goerr.Wrap(model.ErrFormatMismatch, "archive member exceeds size limit",
			goerr.V("member", file.Name), goerr.V("limit", maxMemberSize))
	}
	return data, nil
}
