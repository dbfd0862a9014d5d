package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// ManifestFileName is the ownership manifest kept in the installation
// directory. Files listed in it were installed by fontprov and may be
// replaced by later runs; any other file is never overwritten.
const ManifestFileName = ".fontprov-manifest.toml"

type manifestEntry struct {
	Name   string `toml:"name"`
	SHA256 string `toml:"sha256"`
}

type manifestFile struct {
	Files []manifestEntry `toml:"file"`
}

type manifest struct {
	files map[string]string
}

func loadManifest(dir string) (*manifest, error) {
	m := &manifest{files: make(map[string]string)}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read ownership manifest", goerr.V("dir", dir))
	}

	var file manifestFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse ownership manifest", goerr.V("dir", dir))
	}
	for _, entry := range file.Files {
		m.files[entry.Name] = entry.SHA256
	}
	return m, nil
}

func (m *manifest) owns(name string) bool {
	_, ok := m.files[name]
	return ok
}

func (m *manifest) set(name, digest string) {
	m.files[name] = digest
}

// encode renders the manifest sorted by name, so that identical sets produce
// identical files
func (m *manifest) encode() ([]byte, error) {
	var file manifestFile
	for name, digest := range m.files {
		file.Files = append(file.Files, manifestEntry{Name: name, SHA256: digest})
	}
	sort.Slice(file.Files, func(i, j int) bool {
		return file.Files[i].Name < file.Files[j].Name
	})

	raw, err := toml.Marshal(file)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode ownership manifest")
	}
	return raw, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
