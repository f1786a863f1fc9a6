package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type stubTimelineRepo struct {
	windowRows     []TimelineRow
	allRows        []TimelineRow
	lastWindowCall WindowParams
	lastAllCall    WindowParams
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	s.lastWindowCall = arg
	return s.windowRows, nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	s.lastAllCall = arg
	return s.allRows, nil
}

func mockRow(ts string, actor int64, action string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{At: at, ActorID: actor, Action: action, Entity: "user", EntityID: "1"}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		windowRows: []TimelineRow{
			mockRow("2024-03-10T10:00:00Z", 1, "auth.login"),
			mockRow("2024-03-09T09:00:00Z", 1, "auth.logout"),
			mockRow("2024-03-08T08:00:00Z", 2, "auth.login"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     2,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 3 || result.Paging.PrevPage != 1 {
		t.Fatalf("unexpected paging %+v", result.Paging)
	}
	if repo.lastWindowCall.LimitRows != 3 {
		t.Fatalf("expected limitRows 3, got %d", repo.lastWindowCall.LimitRows)
	}
	if repo.lastWindowCall.OffsetRows != 2 {
		t.Fatalf("expected offset 2, got %d", repo.lastWindowCall.OffsetRows)
	}
	if !repo.lastWindowCall.FromAt.Valid || repo.lastWindowCall.ActorID.Valid {
		t.Fatalf("unexpected filter params %+v", repo.lastWindowCall)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.PageSize != 50 || repo.lastWindowCall.LimitRows != 51 {
		t.Fatalf("expected page size 50, got %+v", result.Paging)
	}
	if result.Rows == nil || result.Paging.Page != 1 {
		t.Fatalf("expected empty first page, got %+v", result)
	}
}

func TestServiceExportPassesFilters(t *testing.T) {
	repo := &stubTimelineRepo{allRows: []TimelineRow{mockRow("2024-03-10T10:00:00Z", 7, "auth.login")}}
	rows, err := NewService(repo).Export(context.Background(), TimelineFilters{ActorID: 7, Action: " auth.login "})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if repo.lastAllCall.ActorID != (pgtype.Int8{Int64: 7, Valid: true}) {
		t.Fatalf("unexpected actor filter %+v", repo.lastAllCall.ActorID)
	}
	if repo.lastAllCall.Action != (pgtype.Text{String: "auth.login", Valid: true}) {
		t.Fatalf("unexpected action filter %+v", repo.lastAllCall.Action)
	}
	if repo.lastAllCall.FromAt.Valid {
		t.Fatalf("expected open lower bound")
	}
}

func TestWriteCSV(t *testing.T) {
	out, err := WriteCSV([]TimelineRow{mockRow("2024-03-10T10:00:00Z", 7, "auth.login")})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out)
	}
	if lines[1] != "2024-03-10T10:00:00Z,7,auth.login,user,1" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
