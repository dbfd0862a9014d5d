package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

func buildZip(t *testing.T, entries [][2]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e[0])
		gt.NoError(t, err)
		_, err = f.Write([]byte(e[1]))
		gt.NoError(t, err)
	}
	gt.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractMembers(t *testing.T) {
	ctx := context.Background()
	archive := buildZip(t, [][2]string{
		{"poppins/static/POPPINS-BOLD.TTF", "bold"},
		{"poppins/variable/Poppins-Bold.ttf", "variable bold"},
		{"poppins/static/Poppins-Light.ttf", "light"},
		{"../evil/Poppins-Thin.ttf", "escape"},
		{"fonts/Custom Name.ttf", "custom"},
	})

	assets := []model.FontAsset{
		{Family: "Poppins", Style: "Bold"},
		{Family: "Poppins", Style: "Thin"},
		{Family: "Poppins", Style: "Black", Source: model.SourceLocator{Member: "fonts/Custom Name.ttf"}},
		{Family: "Poppins", Style: "Medium", Source: model.SourceLocator{Member: "Custom Name.ttf"}},
		{Family: "Poppins", Style: "ExtraBold", Source: model.SourceLocator{Member: "../evil/Poppins-Thin.ttf"}},
	}

	results, err := extractMembers(ctx, archive, assets)
	gt.NoError(t, err)
	gt.A(t, results).Length(len(assets))

	t.Run("basename match is case-insensitive and keeps the first member", func(t *testing.T) {
		gt.NoError(t, results[0].err)
		gt.Value(t, string(results[0].data)).Equal("bold")
	})

	t.Run("members escaping the archive root are ignored", func(t *testing.T) {
		gt.True(t, errors.Is(results[1].err, model.ErrSourceNotFound))
		gt.True(t, errors.Is(results[4].err, model.ErrSourceNotFound))
	})

	t.Run("explicit member path matches exactly", func(t *testing.T) {
		gt.NoError(t, results[2].err)
		gt.Value(t, string(results[2].data)).Equal("custom")
	})

	t.Run("explicit member basename matches in any directory", func(t *testing.T) {
		gt.NoError(t, results[3].err)
		gt.Value(t, string(results[3].data)).Equal("custom")
	})
}

func TestExtractMembers_InvalidZip(t *testing.T) {
	_, err := extractMembers(context.Background(), []byte("PK\x03\x04 definitely not a zip"), []model.FontAsset{{Family: "A", Style: "B"}})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrFormatMismatch))
}

func TestCountUnclaimed(t *testing.T) {
	archive := buildZip(t, [][2]string{
		{"fonts/", ""},
		{"fonts/A-Bold.ttf", "bold"},
		{"fonts/A-Light.ttf", "light"},
		{"OFL.txt", "license"},
	})
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	gt.NoError(t, err)

	gt.Value(t, countUnclaimed(zr.File, nil)).Equal(3)

	// Two assets reading the same member claim it once
	bold := zr.File[1]
	claimed := map[*zip.File]struct{}{bold: {}}
	claimed[bold] = struct{}{}
	gt.Value(t, countUnclaimed(zr.File, claimed)).Equal(2)

	all := map[*zip.File]struct{}{zr.File[1]: {}, zr.File[2]: {}, zr.File[3]: {}}
	gt.Value(t, countUnclaimed(zr.File, all)).Equal(0)
}

func TestSafeMemberName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"plain", "Poppins-Bold.ttf", "Poppins-Bold.ttf", true},
		{"nested", "a/b/../c/Poppins-Bold.ttf", "a/c/Poppins-Bold.ttf", true},
		{"windows separators", "fonts\\Poppins-Bold.ttf", "fonts/Poppins-Bold.ttf", true},
		{"absolute", "/etc/passwd", "", false},
		{"parent", "../Poppins-Bold.ttf", "", false},
		{"dot", ".", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := safeMemberName(tt.input)
			gt.Value(t, ok).Equal(tt.ok)
			gt.Value(t, got).Equal(tt.expected)
		})
	}
}

func TestVerifyFont(t *testing.T) {
	t.Run("empty payload", func(t *testing.T) {
		_, err := verifyFont(nil, true)
		gt.True(t, errors.Is(err, model.ErrEmptyPayload))
	})

	t.Run("wrong signature", func(t *testing.T) {
		_, err := verifyFont([]byte("wOF2 woff2 data"), false)
		gt.True(t, errors.Is(err, model.ErrFormatMismatch))
	})

	t.Run("signature only", func(t *testing.T) {
		info, err := verifyFont([]byte{0x00, 0x01, 0x00, 0x00, 0xff}, false)
		gt.NoError(t, err)
		gt.Value(t, info.Family).Equal("")
	})

	t.Run("deep validation reads embedded names", func(t *testing.T) {
		info, err := verifyFont(gobold.TTF, true)
		gt.NoError(t, err)
		gt.Value(t, info.Family).Equal("Go")
		gt.Value(t, info.Style).Equal("Bold")
	})

	t.Run("deep validation rejects corrupt tables", func(t *testing.T) {
		_, err := verifyFont(goregular.TTF[:40], true)
		gt.True(t, errors.Is(err, model.ErrFormatMismatch))
	})
}

func TestVerifyArchive(t *testing.T) {
	gt.True(t, errors.Is(verifyArchive(nil), model.ErrEmptyPayload))
	gt.True(t, errors.Is(verifyArchive(goregular.TTF), model.ErrFormatMismatch))
	gt.NoError(t, verifyArchive(buildZip(t, [][2]string{{"a.ttf", "x"}})))
}

func TestFontInfo_MatchesDeclared(t *testing.T) {
	info := &fontInfo{Family: "Montserrat SemiBold"}
	gt.True(t, info.matchesDeclared(model.FontAsset{Family: "Montserrat"}))
	gt.False(t, info.matchesDeclared(model.FontAsset{Family: "Poppins"}))
	gt.True(t, (&fontInfo{}).matchesDeclared(model.FontAsset{Family: "Poppins"}))
}
