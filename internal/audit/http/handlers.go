package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shepherd-hq/shepherd/internal/audit"
	"github.com/shepherd-hq/shepherd/internal/platform/httpx"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 50
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves the audit timeline. Role guards are applied by the caller.
type Handler struct {
	logger   *slog.Logger
	service  TimelineService
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates an audit handler.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: newQueryValidator(), now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export audit timeline", err)
		return
	}
	csvBytes, err := audit.WriteCSV(rows)
	if err != nil {
		h.handleServerError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-timeline.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// timelineQuery is the decoded query string. Field names in validation
// errors come from the query tag.
type timelineQuery struct {
	From     time.Time `query:"from"`
	To       time.Time `query:"to" validate:"gtefield=From"`
	Page     int       `query:"page" validate:"min=1"`
	PageSize int       `query:"page_size" validate:"min=1"`
	Actor    int64     `query:"actor" validate:"min=0"`
	Action   string    `query:"action" validate:"omitempty,max=64,printascii"`
}

func newQueryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}

// parseFilters reads from/to as dates. The range is [from, to+1day).
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	today := h.now().UTC().Truncate(24 * time.Hour)

	var (
		in  timelineQuery
		err error
	)
	if in.To, err = dateParam(q.Get("to"), today); err != nil {
		return audit.TimelineFilters{}, validationError{field: "to"}
	}
	if in.From, err = dateParam(q.Get("from"), in.To.Add(-defaultDateRange)); err != nil {
		return audit.TimelineFilters{}, validationError{field: "from"}
	}
	if in.Page, err = intParam(q.Get("page"), 1); err != nil {
		return audit.TimelineFilters{}, validationError{field: "page"}
	}
	if in.PageSize, err = intParam(q.Get("page_size"), defaultPageSize); err != nil {
		return audit.TimelineFilters{}, validationError{field: "page_size"}
	}
	actor, err := intParam(q.Get("actor"), 0)
	if err != nil {
		return audit.TimelineFilters{}, validationError{field: "actor"}
	}
	in.Actor = int64(actor)
	in.Action = strings.TrimSpace(q.Get("action"))

	if err := h.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return audit.TimelineFilters{}, validationError{field: fieldErrs[0].Field()}
		}
		return audit.TimelineFilters{}, err
	}
	if in.To.Sub(in.From) > maxDateRange {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}

	return audit.TimelineFilters{
		From:     in.From,
		To:       in.To.Add(24 * time.Hour),
		ActorID:  in.Actor,
		Action:   in.Action,
		Page:     in.Page,
		PageSize: min(in.PageSize, maxPageSize),
	}, nil
}

func dateParam(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		httpx.Problem(w, http.StatusBadRequest, "invalid "+v.field)
		return
	}
	h.handleServerError(w, "validate filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.RespondError(w, err)
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}
