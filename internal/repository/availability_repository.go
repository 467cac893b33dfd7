package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// upsertChunk bounds the number of rows per INSERT so large ranges stay
// well below the placeholder limit.  Callers that need a multi-chunk
// write to be atomic run it inside Store.InTx.
const upsertChunk = 500

// AvailabilityRepo reads and writes the availability table.  Rows are
// keyed by (hall_id, date); a missing row means the day is available.
type AvailabilityRepo struct {
	db dbtx
}

// NewAvailabilityRepo constructs an AvailabilityRepo.
func NewAvailabilityRepo(db dbtx) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// Get returns the stored flags of the hall between r.Start and r.End,
// keyed by YYYY-MM-DD.
func (r *AvailabilityRepo) Get(ctx context.Context, hallID uint64, dr model.DateRange) (map[string]bool, error) {
	const q = `SELECT date, is_available FROM availability
	           WHERE hall_id = ? AND date >= ? AND date <= ?
	           ORDER BY date`
	rows, err := r.db.QueryContext(ctx, q, hallID, model.FormatDate(dr.Start), model.FormatDate(dr.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			d         time.Time
			available bool
		)
		if err := rows.Scan(&d, &available); err != nil {
			return nil, err
		}
		out[model.FormatDate(d)] = available
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts or overwrites the given days using multi-row
// INSERT ... ON DUPLICATE KEY UPDATE statements.
func (r *AvailabilityRepo) Upsert(ctx context.Context, days []model.AvailabilityDay) error {
	for start := 0; start < len(days); start += upsertChunk {
		end := start + upsertChunk
		if end > len(days) {
			end = len(days)
		}
		chunk := days[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO availability (hall_id, date, is_available) VALUES `)
		args := make([]any, 0, len(chunk)*3)
		for i, d := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, d.HallID, model.FormatDate(d.Date), d.Available)
		}
		sb.WriteString(` ON DUPLICATE KEY UPDATE is_available = VALUES(is_available)`)
		if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}
