package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

func asset(family, style string) model.FontAsset {
	return model.FontAsset{
		Family: family,
		Style:  style,
		Source: model.SourceLocator{
			URL:     "https://example.com/" + family + "-" + style + ".ttf",
			Archive: "https://example.com/" + family + ".zip",
		},
	}
}

func TestFontAsset_FileName(t *testing.T) {
	tests := []struct {
		name     string
		asset    model.FontAsset
		expected string
	}{
		{
			name:     "simple family",
			asset:    model.FontAsset{Family: "Montserrat", Style: "Bold"},
			expected: "Montserrat-Bold.ttf",
		},
		{
			name:     "family with spaces",
			asset:    model.FontAsset{Family: "Open Sans", Style: "Semi Bold"},
			expected: "OpenSans-SemiBold.ttf",
		},
		{
			name:     "explicit format",
			asset:    model.FontAsset{Family: "Poppins", Style: "Regular", Format: model.FormatTrueType},
			expected: "Poppins-Regular.ttf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.asset.FileName()).Equal(tt.expected)
		})
	}
}

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name     string
		catalog  *model.Catalog
		strategy model.Strategy
		wantErr  bool
	}{
		{
			name:     "valid per-file catalog",
			catalog:  &model.Catalog{Assets: []model.FontAsset{asset("Montserrat", "Bold"), asset("Montserrat", "SemiBold")}},
			strategy: model.StrategyPerFile,
		},
		{
			name:     "valid archive catalog",
			catalog:  &model.Catalog{Assets: []model.FontAsset{asset("Poppins", "Bold"), asset("Poppins", "SemiBold")}},
			strategy: model.StrategyArchive,
		},
		{
			name:     "empty catalog",
			catalog:  &model.Catalog{},
			strategy: model.StrategyPerFile,
			wantErr:  true,
		},
		{
			name:     "nil catalog",
			catalog:  nil,
			strategy: model.StrategyPerFile,
			wantErr:  true,
		},
		{
			name:     "duplicate family and style",
			catalog:  &model.Catalog{Assets: []model.FontAsset{asset("Montserrat", "Bold"), asset("Montserrat", "Bold")}},
			strategy: model.StrategyPerFile,
			wantErr:  true,
		},
		{
			name: "missing url for per-file",
			catalog: &model.Catalog{Assets: []model.FontAsset{{
				Family: "Montserrat", Style: "Bold",
				Source: model.SourceLocator{Archive: "https://example.com/m.zip"},
			}}},
			strategy: model.StrategyPerFile,
			wantErr:  true,
		},
		{
			name: "missing archive for archive strategy",
			catalog: &model.Catalog{Assets: []model.FontAsset{{
				Family: "Montserrat", Style: "Bold",
				Source: model.SourceLocator{URL: "https://example.com/m.ttf"},
			}}},
			strategy: model.StrategyArchive,
			wantErr:  true,
		},
		{
			name:     "path traversal in family",
			catalog:  &model.Catalog{Assets: []model.FontAsset{asset("../etc", "Bold")}},
			strategy: model.StrategyPerFile,
			wantErr:  true,
		},
		{
			name:     "empty style",
			catalog:  &model.Catalog{Assets: []model.FontAsset{asset("Montserrat", " ")}},
			strategy: model.StrategyPerFile,
			wantErr:  true,
		},
		{
			name: "unsupported format",
			catalog: &model.Catalog{Assets: []model.FontAsset{{
				Family: "Montserrat", Style: "Bold", Format: "woff2",
				Source: model.SourceLocator{URL: "https://example.com/m.woff2"},
			}}},
			strategy: model.StrategyPerFile,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate(tt.strategy)
			if tt.wantErr {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, model.ErrInvalidCatalog))
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestCatalog_Clone(t *testing.T) {
	original := &model.Catalog{Name: "captions", Assets: []model.FontAsset{asset("Montserrat", "Bold")}}
	cloned := original.Clone()

	original.Assets[0].Style = "Light"

	gt.Value(t, cloned.Name).Equal("captions")
	gt.Value(t, cloned.Assets[0].Style).Equal("Bold")
}

func TestParseStrategy(t *testing.T) {
	s, err := model.ParseStrategy("ARCHIVE")
	gt.NoError(t, err)
	gt.Value(t, s).Equal(model.StrategyArchive)

	s, err = model.ParseStrategy("per-file")
	gt.NoError(t, err)
	gt.Value(t, s).Equal(model.StrategyPerFile)

	_, err = model.ParseStrategy("torrent")
	gt.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := model.ParsePolicy("best-effort")
	gt.NoError(t, err)
	gt.Value(t, p).Equal(model.PolicyBestEffort)

	p, err = model.ParsePolicy("Fail-Fast")
	gt.NoError(t, err)
	gt.Value(t, p).Equal(model.PolicyFailFast)

	_, err = model.ParsePolicy("yolo")
	gt.Error(t, err)
}
