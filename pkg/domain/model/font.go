package model

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Strategy selects how fetch units are derived from a catalog
type Strategy string

const (
	// StrategyPerFile fetches each asset individually from its direct URL
	StrategyPerFile Strategy = "per-file"
	// StrategyArchive fetches each distinct archive once and extracts matching members
	StrategyArchive Strategy = "archive"
)

// ParseStrategy converts a flag value into a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyPerFile:
		return StrategyPerFile, nil
	case StrategyArchive:
		return StrategyArchive, nil
	default:
		return "", goerr.New("unknown strategy", goerr.V("strategy", s))
	}
}

// Policy controls whether one unit's failure aborts the whole run
type Policy string

const (
	PolicyFailFast   Policy = "fail-fast"
	PolicyBestEffort Policy = "best-effort"
)

// ParsePolicy converts a flag value into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case PolicyFailFast:
		return PolicyFailFast, nil
	case PolicyBestEffort:
		return PolicyBestEffort, nil
	default:
		return "", goerr.New("unknown failure policy", goerr.V("policy", s))
	}
}

// FontFormat is the expected file format of an installed asset
type FontFormat string

const (
	FormatTrueType FontFormat = "ttf"
)

// SourceLocator tells where an asset comes from. URL is used by the per-file
// strategy; Archive and Member by the archive strategy.
type SourceLocator struct {
	URL     string `json:"url,omitempty"`
	Archive string `json:"archive,omitempty"`
	Member  string `json:"member,omitempty"`
}

// AssetKey identifies an asset within a catalog
type AssetKey struct {
	Family string
	Style  string
}

func (k AssetKey) String() string {
	return k.Family + "/" + k.Style
}

// FontAsset identifies one installable font
type FontAsset struct {
	Family string        `json:"family"`
	Style  string        `json:"style"`
	Source SourceLocator `json:"source"`
	Format FontFormat    `json:"format"`
}

// Key returns the (family, style) pair of the asset
func (a FontAsset) Key() AssetKey {
	return AssetKey{Family: a.Family, Style: a.Style}
}

// FileName returns the file name the asset is installed under, e.g.
// "Montserrat-SemiBold.ttf" for {Montserrat, SemiBold}.
func (a FontAsset) FileName() string {
	format := a.Format
	if format == "" {
		format = FormatTrueType
	}
	return compact(a.Family) + "-" + compact(a.Style) + "." + string(format)
}

// Locator returns the locator of the fetch unit the asset belongs to
func (a FontAsset) Locator(strategy Strategy) string {
	if strategy == StrategyArchive {
		return a.Source.Archive
	}
	return a.Source.URL
}

func (a FontAsset) validate(strategy Strategy) error {
	if err := validateName("family", a.Family); err != nil {
		return err
	}
	if err := validateName("style", a.Style); err != nil {
		return err
	}
	if a.Format != "" && a.Format != FormatTrueType {
		return goerr.Wrap(ErrInvalidCatalog, "unsupported font format",
			goerr.V("asset", a.Key().String()), goerr.V("format", a.Format))
	}

	switch strategy {
	case StrategyPerFile:
		if a.Source.URL == "" {
			return goerr.Wrap(ErrInvalidCatalog, "per-file strategy requires a url",
				goerr.V("asset", a.Key().String()))
		}
	case StrategyArchive:
		if a.Source.Archive == "" {
			return goerr.Wrap(ErrInvalidCatalog, "archive strategy requires an archive locator",
				goerr.V("asset", a.Key().String()))
		}
	default:
		return goerr.Wrap(ErrInvalidCatalog, "unknown strategy", goerr.V("strategy", strategy))
	}
	return nil
}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return goerr.Wrap(ErrInvalidCatalog, fmt.Sprintf("%s cannot be empty", field))
	}
	if strings.ContainsAny(value, "/\\\x00") || strings.Contains(value, "..") {
		return goerr.Wrap(ErrInvalidCatalog, fmt.Sprintf("%s contains path separator or null byte", field),
			goerr.V(field, value))
	}
	return nil
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Catalog is an ordered, immutable list of font assets to provision
type Catalog struct {
	Name   string      `json:"name"`
	Assets []FontAsset `json:"assets"`
}

// Clone returns a deep copy, so later changes by the caller do not affect a
// running provisioning
func (c *Catalog) Clone() *Catalog {
	assets := make([]FontAsset, len(c.Assets))
	copy(assets, c.Assets)
	return &Catalog{Name: c.Name, Assets: assets}
}

// Validate checks the catalog can be provisioned with the strategy
func (c *Catalog) Validate(strategy Strategy) error {
	if c == nil || len(c.Assets) == 0 {
		return goerr.Wrap(ErrInvalidCatalog, "catalog has no assets")
	}

	seen := make(map[AssetKey]int, len(c.Assets))
	for i, asset := range c.Assets {
		if err := asset.validate(strategy); err != nil {
			return goerr.Wrap(err, "invalid asset", goerr.V("index", i))
		}
		if prev, ok := seen[asset.Key()]; ok {
			return goerr.Wrap(ErrInvalidCatalog, "duplicate (family, style) pair",
				goerr.V("asset", asset.Key().String()),
				goerr.V("first_index", prev),
				goerr.V("index", i))
		}
		seen[asset.Key()] = i
	}
	return nil
}

// UnitKind tells whether a fetch unit retrieves a single file or an archive
type UnitKind string

const (
	UnitKindFile    UnitKind = "file"
	UnitKindArchive UnitKind = "archive"
)

// FetchUnit is the smallest thing retrieved in one network operation
type FetchUnit struct {
	Index   int
	Kind    UnitKind
	Locator string
	Assets  []FontAsset
}
