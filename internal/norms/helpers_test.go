package norms_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

func upper(v float64) *float64 { return &v }

// ladder returns a gap-free table body for one subscale and criterion value:
// [0,9] [10,19] ... with the last band open.
func ladder(sub instrument.Subscale, criterion string, bands int) []norms.RowSpec {
	labels := norms.StandardLadder
	out := make([]norms.RowSpec, 0, bands)
	for i := 0; i < bands; i++ {
		r := norms.RowSpec{
			Subscale:       sub,
			Lower:          float64(i * 10),
			Percentile:     (i + 1) * 10,
			Classification: labels[i%len(labels)],
			CriterionValue: criterion,
		}
		if i < bands-1 {
			r.Upper = upper(float64(i*10 + 9))
		}
		out = append(out, r)
	}
	return out
}

func populate(t *testing.T, s norms.Populator, spec norms.TableSpec) norms.Table {
	t.Helper()
	tb, err := s.Populate(context.Background(), spec)
	require.NoError(t, err)
	return tb
}

// flakyStore fails the criterion-scoped and/or the generic table read.
type flakyStore struct {
	norms.Store
	failScoped bool
	failAll    bool
	calls      []*norms.Filter
}

var errBoom = errors.New("boom")

func (f *flakyStore) ListActiveTables(ctx context.Context, t instrument.Type, flt *norms.Filter) ([]norms.Table, error) {
	f.calls = append(f.calls, flt)
	if flt != nil && f.failScoped {
		return nil, errBoom
	}
	if flt == nil && f.failAll {
		return nil, errBoom
	}
	return f.Store.ListActiveTables(ctx, t, flt)
}
