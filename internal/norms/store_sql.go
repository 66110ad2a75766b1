package norms

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// SQLStore reads and populates normative tables in sqlite or postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(dbh *sql.DB) *SQLStore {
	return &SQLStore{db: dbh}
}

const tableCols = `id, name, instrument, version, dimension, criterion_value, subscale, is_generic, description, active, updated_at`

func (s *SQLStore) ListActiveTables(ctx context.Context, t instrument.Type, f *Filter) ([]Table, error) {
	var (
		b    strings.Builder
		args = []any{string(t)}
	)
	b.WriteString(`SELECT ` + tableCols + ` FROM norm_tables WHERE instrument=$1 AND active=TRUE`)
	if f != nil {
		args = append(args, string(f.Dimension))
		fmt.Fprintf(&b, ` AND dimension=$%d`, len(args))
		if f.Value != "" {
			args = append(args, f.Value)
			fmt.Fprintf(&b, ` AND LOWER(criterion_value)=LOWER($%d)`, len(args))
		}
	}
	b.WriteString(` ORDER BY id`)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		tb, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListRows(ctx context.Context, tableID int64, sub instrument.Subscale) ([]Row, error) {
	q := `SELECT id, table_id, subscale, lower_bound, upper_bound, percentile, classification, criterion_value
		FROM norm_rows WHERE table_id=$1`
	args := []any{tableID}
	if sub != "" {
		q += ` AND (subscale=$2 OR subscale='')`
		args = append(args, string(sub))
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list rows of table %d: %w", tableID, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r   Row
			sub string
		)
		if err := rows.Scan(&r.ID, &r.TableID, &sub, &r.Lower, &r.Upper, &r.Percentile, &r.Classification, &r.CriterionValue); err != nil {
			return nil, fmt.Errorf("list rows of table %d: %w", tableID, err)
		}
		r.Subscale = instrument.Subscale(sub)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Populate upserts the table keyed by name and reconciles its rows inside one
// transaction. Bands whose (subscale, criterion value, lower bound) already
// exist are updated in place, new bands inserted, vanished bands deleted, so
// re-running an unchanged spec leaves the rows untouched.
func (s *SQLStore) Populate(ctx context.Context, spec TableSpec) (Table, error) {
	if err := spec.Validate(); err != nil {
		return Table{}, err
	}
	tb := spec.table()
	tb.UpdatedAt = time.Now().Unix()

	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO norm_tables (name, instrument, version, dimension, criterion_value, subscale, is_generic, description, active, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9)
			ON CONFLICT (name) DO UPDATE SET
				instrument=EXCLUDED.instrument,
				version=EXCLUDED.version,
				dimension=EXCLUDED.dimension,
				criterion_value=EXCLUDED.criterion_value,
				subscale=EXCLUDED.subscale,
				is_generic=EXCLUDED.is_generic,
				description=EXCLUDED.description,
				active=TRUE,
				updated_at=EXCLUDED.updated_at
			RETURNING id`,
			tb.Name, string(tb.Instrument), tb.Version, string(tb.Dimension), tb.CriterionValue,
			string(tb.Subscale), tb.Generic, tb.Description, tb.UpdatedAt).Scan(&tb.ID)
		if err != nil {
			return fmt.Errorf("upsert table %q: %w", tb.Name, err)
		}

		existing, err := rowIDs(ctx, tx, tb.ID)
		if err != nil {
			return err
		}
		for _, r := range spec.rows(tb.ID) {
			k := keyOf(r)
			if id, ok := existing[k]; ok {
				delete(existing, k)
				if _, err := tx.ExecContext(ctx, `
					UPDATE norm_rows SET upper_bound=$1, percentile=$2, classification=$3 WHERE id=$4`,
					r.Upper, r.Percentile, r.Classification, id); err != nil {
					return fmt.Errorf("update row %d: %w", id, err)
				}
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO norm_rows (table_id, subscale, lower_bound, upper_bound, percentile, classification, criterion_value)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				r.TableID, string(r.Subscale), r.Lower, r.Upper, r.Percentile, r.Classification, r.CriterionValue); err != nil {
				return fmt.Errorf("insert row of %q: %w", tb.Name, err)
			}
		}
		for _, id := range existing {
			if _, err := tx.ExecContext(ctx, `DELETE FROM norm_rows WHERE id=$1`, id); err != nil {
				return fmt.Errorf("delete row %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return Table{}, err
	}
	return tb, nil
}

func rowIDs(ctx context.Context, tx *sql.Tx, tableID int64) (map[rowKey]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, subscale, criterion_value, lower_bound FROM norm_rows WHERE table_id=$1`, tableID)
	if err != nil {
		return nil, fmt.Errorf("read rows of table %d: %w", tableID, err)
	}
	defer rows.Close()
	out := map[rowKey]int64{}
	for rows.Next() {
		var (
			id  int64
			sub string
			k   rowKey
		)
		if err := rows.Scan(&id, &sub, &k.criterion, &k.lower); err != nil {
			return nil, fmt.Errorf("read rows of table %d: %w", tableID, err)
		}
		k.sub = instrument.Subscale(sub)
		out[k] = id
	}
	return out, rows.Err()
}

// Deactivate soft-deletes the named table.
func (s *SQLStore) Deactivate(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE norm_tables SET active=FALSE, updated_at=$1 WHERE name=$2`, time.Now().Unix(), name)
	if err != nil {
		return fmt.Errorf("deactivate %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deactivate %q: %w", name, ErrNotFound)
	}
	return nil
}

// CountRows returns the number of rows stored for the named table.
func (s *SQLStore) CountRows(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(r.id) FROM norm_rows r JOIN norm_tables t ON t.id = r.table_id WHERE t.name=$1`, name).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTable(sc scanner) (Table, error) {
	var (
		tb              Table
		instr, dim, sub string
	)
	err := sc.Scan(&tb.ID, &tb.Name, &instr, &tb.Version, &dim, &tb.CriterionValue, &sub,
		&tb.Generic, &tb.Description, &tb.Active, &tb.UpdatedAt)
	tb.Instrument = instrument.Type(instr)
	tb.Dimension = Dimension(dim)
	tb.Subscale = instrument.Subscale(sub)
	return tb, err
}
