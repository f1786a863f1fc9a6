package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shepherd-hq/shepherd/internal/platform/db"
)

// WindowParams selects a page of audit rows.
type WindowParams struct {
	FromAt     pgtype.Timestamptz
	ToAt       pgtype.Timestamptz
	ActorID    pgtype.Int8
	Action     pgtype.Text
	OffsetRows int32
	LimitRows  int32
}

// PGRepository reads audit_logs.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PGRepository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const timelineQuery = `
SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::bigint IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR action = $4)
ORDER BY occurred_at DESC, id DESC`

// TimelineWindow returns one page of rows, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	rows, err := r.db.Query(ctx, timelineQuery+` LIMIT $5 OFFSET $6`,
		arg.FromAt, arg.ToAt, arg.ActorID, arg.Action, arg.LimitRows, arg.OffsetRows)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// TimelineAll returns every matching row, newest first.
func (r *PGRepository) TimelineAll(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	rows, err := r.db.Query(ctx, timelineQuery, arg.FromAt, arg.ToAt, arg.ActorID, arg.Action)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]TimelineRow, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			at   time.Time
			meta []byte
		)
		if err := row.Scan(&at, &out.ActorID, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		out.At = at
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, err
			}
		}
		return out, nil
	})
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func optionalID(id int64) pgtype.Int8 {
	if id <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}
