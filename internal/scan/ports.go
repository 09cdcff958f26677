package scan

import (
	"context"

	"haushalt/internal/core"
)

// Ports consumed by the workflow. Both are the only blocking points of a
// scan; everything between them is pure in-memory state.
type (
	// TextExtractor is the external OCR capability: image bytes in, raw
	// receipt text out.
	TextExtractor interface {
		ExtractText(ctx context.Context, image []byte) (string, error)
	}

	// TransactionSubmitter turns a confirmed allocation into ledger entries.
	TransactionSubmitter interface {
		SubmitAllocation(ctx context.Context, result core.AllocationResult) error
	}
)
