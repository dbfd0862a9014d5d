package usecase

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/image/font/sfnt"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

var (
	trueTypeMagic      = []byte{0x00, 0x01, 0x00, 0x00}
	appleTrueTypeMagic = []byte("true")
	zipMagic           = []byte("PK\x03\x04")
)

// fontInfo holds the names embedded in a parsed font
type fontInfo struct {
	Family string
	Style  string
}

// verifyFont checks the payload is a non-empty TrueType font. With deep set,
// the sfnt tables are parsed as well, and the embedded names are returned.
func verifyFont(data []byte, deep bool) (*fontInfo, error) {
	if len(data) == 0 {
		return nil, goerr.Wrap(model.ErrEmptyPayload, "font payload has zero bytes")
	}
	if !bytes.HasPrefix(data, trueTypeMagic) && !bytes.HasPrefix(data, appleTrueTypeMagic) {
		return nil, goerr.Wrap(model.ErrFormatMismatch, "payload does not carry a TrueType signature",
			goerr.V("head", signature(data)))
	}
	if !deep {
		return &fontInfo{}, nil
	}

	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, goerr.Wrap(model.ErrFormatMismatch, "failed to parse font tables",
			goerr.V("cause", err.Error()))
	}

	return &fontInfo{
		Family: fontName(f, sfnt.NameIDTypographicFamily, sfnt.NameIDFamily),
		Style:  fontName(f, sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily),
	}, nil
}

// verifyArchive checks the payload is a non-empty zip archive
func verifyArchive(data []byte) error {
	if len(data) == 0 {
		return goerr.Wrap(model.ErrEmptyPayload, "archive payload has zero bytes")
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return goerr.Wrap(model.ErrFormatMismatch, "payload does not carry a zip signature",
			goerr.V("head", signature(data)))
	}
	return nil
}

// matchesDeclared reports whether the embedded family name agrees with the
// catalog. Remote files often carry the weight in the family name
// ("Montserrat SemiBold"), so containment is enough.
func (i *fontInfo) matchesDeclared(asset model.FontAsset) bool {
	if i == nil || i.Family == "" {
		return true
	}
	embedded := strings.ToLower(compactName(i.Family))
	return strings.Contains(embedded, strings.ToLower(compactName(asset.Family)))
}

func fontName(f *sfnt.Font, ids ...sfnt.NameID) string {
	var buf sfnt.Buffer
	for _, id := range ids {
		if name, err := f.Name(&buf, id); err == nil && name != "" {
			return name
		}
	}
	return ""
}

func compactName(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func signature(data []byte) string {
	if len(data) > 4 {
		data = data[:4]
	}
	return hex.EncodeToString(data)
}
