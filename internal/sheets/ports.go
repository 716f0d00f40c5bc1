package sheets

import "context"

// Ports for outbound spreadsheet adapters.
type (
	// RowReader reads a range as rows of cell text, first row headers.
	RowReader interface {
		ReadRange(ctx context.Context, rng string) ([][]string, error)
	}

	// MirrorWriter replaces the whole content of a sheet.
	MirrorWriter interface {
		ReplaceSheet(ctx context.Context, sheet string, values [][]string) error
	}
)
