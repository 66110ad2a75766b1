package norms

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

var (
	ErrNotFound         = errors.New("normative table not found")
	ErrStoreUnavailable = errors.New("normative store unavailable")
	ErrInvalidTable     = errors.New("invalid normative table")
)

// Store is the read interface the scoring engine needs. Both methods return
// results in ascending ID order.
type Store interface {
	ListActiveTables(ctx context.Context, t instrument.Type, f *Filter) ([]Table, error)
	// ListRows returns the rows of a table; an empty subscale returns all rows.
	ListRows(ctx context.Context, tableID int64, sub instrument.Subscale) ([]Row, error)
}

// Populator is implemented by stores that accept the bulk upsert of the
// administrative population routine.
type Populator interface {
	Populate(ctx context.Context, spec TableSpec) (Table, error)
	Deactivate(ctx context.Context, name string) error
}

// AdminStore is a Store that can also be populated.
type AdminStore interface {
	Store
	Populator
}
