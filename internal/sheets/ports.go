package sheets

import "context"

// Ports for outbound adapters.
type (
	// ExportWriter replaces the content of the export sheet with values and
	// returns the A1 range that was written.
	ExportWriter interface {
		WriteExport(ctx context.Context, values [][]interface{}) (updatedRange string, err error)
	}
)
