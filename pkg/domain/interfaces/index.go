package interfaces

import "context"

// FontIndexer is the host font-discovery subsystem
type FontIndexer interface {
	// Rebuild rescans dir and refreshes the index
	Rebuild(ctx context.Context, dir string) error

	// Lookup resolves a family/style pair to an installed font file.
	// Returns an error wrapping model.ErrFontNotFound when nothing matches.
	Lookup(ctx context.Context, family, style string) (string, error)
}
