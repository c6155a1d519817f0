// Usage HTTP handlers.
//
// This file exposes REST endpoints for the command-usage log and its
// aggregates:
//   - POST /usage/invocations          (report a completed invocation)
//   - GET  /usage/invocations          (raw rows, paginated)
//   - GET  /usage/commands             (per-command summaries)
//   - GET  /usage/commands/{name}      (one command's summary)
//   - GET  /usage/users/{id}           (one user's per-command summaries)
//   - GET  /usage/guilds/{id}          (guild breakdowns)
//   - GET  /usage/errors               (failure groupings)
//   - GET  /usage/trends               (per-command hour-of-day buckets)
//   - GET  /usage/timeofday            (overall hour-of-day histogram)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"botmetrics/internal/domain"
	"botmetrics/internal/http/middleware"
	"botmetrics/internal/repo"
	"botmetrics/internal/schedule"
	"botmetrics/internal/services"
	"botmetrics/internal/utils"
)

//
// Service contracts (context-aware)
//

// UsageStats defines the recording and aggregation operations consumed by the
// usage endpoints.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UsageStats interface {
	// Record appends one invocation synchronously and returns the stored row.
	Record(ctx context.Context, in services.NewInvocation) (*domain.CommandInvocation, error)
	// Track appends one invocation in the background (best-effort).
	Track(in services.NewInvocation) error
	// Invocations returns one page of raw rows plus the total count.
	Invocations(ctx context.Context, f repo.InvocationFilter, page, pageSize int) ([]domain.CommandInvocation, int64, error)
	// CommandStats returns per-command summaries within the window.
	CommandStats(ctx context.Context, window *time.Duration) ([]domain.CommandStat, error)
	// CommandStat returns one command's summary or services.ErrNoStats.
	CommandStat(ctx context.Context, name string, window *time.Duration) (*domain.CommandStat, error)
	// UserStats returns one user's per-command summaries or services.ErrNoStats.
	UserStats(ctx context.Context, userID string, window *time.Duration) ([]domain.CommandStat, error)
	// GuildStats computes one of the guild breakdowns.
	GuildStats(ctx context.Context, guildID string, window *time.Duration, breakdown services.GuildBreakdown) (*services.GuildStats, error)
	// ErrorStats groups failures by command and message.
	ErrorStats(ctx context.Context, window *time.Duration) (map[string]map[string]int64, error)
	// UsageTrends buckets each command's invocations by hour of day.
	UsageTrends(ctx context.Context, window time.Duration) (map[string]map[string]int64, error)
	// TimeOfDayStats returns the zero-filled 24-bucket histogram.
	TimeOfDayStats(ctx context.Context, window *time.Duration) ([]domain.HourCount, error)
}

// BriefingComposer defines the briefing assembly operations consumed by the
// briefing endpoints.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BriefingComposer interface {
	// Compose assembles the briefing for a named cadence.
	Compose(ctx context.Context, cadence services.Cadence) (*services.Briefing, error)
	// ComposeWindow assembles a briefing over an arbitrary trailing window.
	ComposeWindow(ctx context.Context, window time.Duration, topN int, title string) (*services.Briefing, error)
}

// BriefingScheduler defines the recurring-delivery registry consumed by the
// briefing endpoints.
type BriefingScheduler interface {
	// Schedule registers a recurring delivery for (target, cadence).
	Schedule(target, timeOfDay string, cadence services.Cadence, timezone string) (schedule.Task, error)
	// Unschedule removes every registration for target.
	Unschedule(target string) error
	// List returns all registrations ordered by target then cadence.
	List() []schedule.Task
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for usage statistics and briefings.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	usage     UsageStats
	briefings BriefingComposer
	sched     BriefingScheduler
}

// New constructs and returns a Handlers instance bound to the given services.
func New(usage UsageStats, briefings BriefingComposer, sched BriefingScheduler) *Handlers {
	return &Handlers{usage: usage, briefings: briefings, sched: sched}
}

//
// DTOs
//

// RecordInvocationResponse wraps a synchronously stored invocation.
type RecordInvocationResponse struct {
	Invocation *domain.CommandInvocation `json:"invocation"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListInvocationsResponse wraps a page of raw invocation rows.
type ListInvocationsResponse struct {
	Invocations []domain.CommandInvocation `json:"invocations"`
	Pagination  Pagination                 `json:"pagination"`
}

// CommandStatsResponse wraps per-command summaries with the applied period.
type CommandStatsResponse struct {
	Period   string               `json:"period,omitempty"`
	Commands []domain.CommandStat `json:"commands"`
}

// UserStatsResponse wraps one user's per-command summaries.
type UserStatsResponse struct {
	UserID   string               `json:"user_id"`
	Period   string               `json:"period,omitempty"`
	Commands []domain.CommandStat `json:"commands"`
}

// ErrorStatsResponse groups failure counts by command then error message.
type ErrorStatsResponse struct {
	Period string                      `json:"period,omitempty"`
	Errors map[string]map[string]int64 `json:"errors"`
}

// TrendsResponse maps command name to hour-of-day buckets.
type TrendsResponse struct {
	Period string                      `json:"period,omitempty"`
	Trends map[string]map[string]int64 `json:"trends"`
}

// TimeOfDayResponse holds the 24 zero-filled hour buckets.
type TimeOfDayResponse struct {
	Period string             `json:"period,omitempty"`
	Hours  []domain.HourCount `json:"hours"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// window parses the optional ?period= query into a trailing window. The
// second return value is false when the handler already wrote a 400.
func window(c *gin.Context) (*time.Duration, bool) {
	p := c.Query("period")
	if p == "" {
		return nil, true
	}
	d, err := services.ParsePeriod(p)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return nil, false
	}
	return &d, true
}

//
// Handlers
//

// PostInvocation godoc
// @ID          postInvocation
// @Summary     Report a completed command invocation
// @Description Appends one invocation to the usage log. By default the write is
// @Description asynchronous and best-effort (202); pass sync=true to wait for
// @Description the stored row (201). Retried reports can be deduplicated with
// @Description an Idempotency-Key header scoped by X-Reporter-ID.
// @Tags        Usage
// @Accept      json
// @Produce     json
//
// @Param       X-Reporter-ID    header  string  false "Reporting dispatcher instance"  example(shard-0)
// @Param       Idempotency-Key  header  string  false "Dedupe key for retried reports"
// @Param       sync             query   bool    false "Wait for the stored row"        default(false)
// @Param       body             body    services.NewInvocation  true  "Invocation report"
//
// @Success     201  {object}  handlers.RecordInvocationResponse
// @Success     202  {object}  map[string]string
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/invocations [post]
func (h *Handlers) PostInvocation(c *gin.Context) {
	ctx := c.Request.Context()

	var in services.NewInvocation
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	reporter := middleware.ReporterIDFromCtx(c)

	// Idempotency (replay path) – return the previously stored row.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.usage.(*services.UsageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, reporter, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetInvocation(svc.DB, rec.InvocationID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, RecordInvocationResponse{Invocation: prev})
					return
				}
			}
		}
	}

	sync := strings.EqualFold(c.Query("sync"), "true")
	if !sync && idemKey == "" {
		if err := h.usage.Track(in); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		ok(c, http.StatusAccepted, gin.H{"status": "accepted"})
		return
	}

	// Keyed reports are written synchronously so the key can point at a row.
	inv, err := h.usage.Record(ctx, in)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInvocation) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeRecordFailed, err.Error())
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.usage.(*services.UsageService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, reporter, idemKey, inv.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, RecordInvocationResponse{Invocation: inv})
}

// ListInvocations godoc
// @ID          listInvocations
// @Summary     List raw invocations (paginated)
// @Description Returns a page of invocation rows, newest first. Filterable by
// @Description command, user_id, guild_id, and trailing period.
// @Tags        Usage
// @Produce     json
//
// @Param       command    query  string  false "Filter by command name"
// @Param       user_id    query  string  false "Filter by user"
// @Param       guild_id   query  string  false "Filter by guild"
// @Param       period     query  string  false "Trailing window (1h, 1d, 1w, 1m)"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListInvocationsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/invocations [get]
func (h *Handlers) ListInvocations(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	f := repo.InvocationFilter{
		CommandName: c.Query("command"),
		UserID:      c.Query("user_id"),
		GuildID:     c.Query("guild_id"),
	}
	if w != nil {
		f.Cutoff = time.Now().UTC().Add(-*w).Unix()
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.usage.Invocations(c.Request.Context(), f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListInvocationsResponse{
		Invocations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetCommandStats godoc
// @ID          getCommandStats
// @Summary     Per-command usage summaries
// @Description Returns every command's totals, success rate, average execution
// @Description time, and last use within the trailing period (all time when
// @Description period is omitted), ordered by total uses.
// @Tags        Usage
// @Produce     json
//
// @Param       period  query  string  false "Trailing window (1h, 1d, 1w, 1m)"
//
// @Success     200  {object}  handlers.CommandStatsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/commands [get]
func (h *Handlers) GetCommandStats(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	stats, err := h.usage.CommandStats(c.Request.Context(), w)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, CommandStatsResponse{Period: c.Query("period"), Commands: stats})
}

// GetCommandStat godoc
// @ID          getCommandStat
// @Summary     One command's usage summary
// @Description Returns the summary for a single command. A command with no
// @Description recorded invocations in the window yields 404 no_data.
// @Tags        Usage
// @Produce     json
//
// @Param       name    path   string  true  "Command name"  example(weather)
// @Param       period  query  string  false "Trailing window (1h, 1d, 1w, 1m)"
//
// @Success     200  {object}  domain.CommandStat
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No recorded usage"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/commands/{name} [get]
func (h *Handlers) GetCommandStat(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	st, err := h.usage.CommandStat(c.Request.Context(), c.Param("name"), w)
	if err != nil {
		if errors.Is(err, services.ErrNoStats) {
			fail(c, http.StatusNotFound, ErrCodeNoData, "no recorded usage for this command")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// GetUserStats godoc
// @ID          getUserStats
// @Summary     One user's usage summaries
// @Description Returns the user's per-command summaries within the window, or
// @Description 404 no_data when the user has no recorded invocations.
// @Tags        Usage
// @Produce     json
//
// @Param       id      path   string  true  "User ID"  example(1234567890)
// @Param       period  query  string  false "Trailing window (1h, 1d, 1w, 1m)"
//
// @Success     200  {object}  handlers.UserStatsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No recorded usage"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/users/{id} [get]
func (h *Handlers) GetUserStats(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	uid := c.Param("id")
	stats, err := h.usage.UserStats(c.Request.Context(), uid, w)
	if err != nil {
		if errors.Is(err, services.ErrNoStats) {
			fail(c, http.StatusNotFound, ErrCodeNoData, "no recorded usage for this user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, UserStatsResponse{UserID: uid, Period: c.Query("period"), Commands: stats})
}

// GetGuildStats godoc
// @ID          getGuildStats
// @Summary     Guild usage breakdown
// @Description Returns one of four breakdowns for a guild: overall (totals,
// @Description unique users/channels, top commands), commands, users (top 10),
// @Description or channels. A guild with no activity yields 404 no_data.
// @Tags        Usage
// @Produce     json
//
// @Param       id         path   string  true  "Guild ID"  example(9876543210)
// @Param       breakdown  query  string  false "overall|commands|users|channels"  default(overall)
// @Param       period     query  string  false "Trailing window (1h, 1d, 1w, 1m)"
//
// @Success     200  {object}  services.GuildStats
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No recorded usage"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/guilds/{id} [get]
func (h *Handlers) GetGuildStats(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	breakdown, err := services.ParseBreakdown(c.Query("breakdown"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	stats, err := h.usage.GuildStats(c.Request.Context(), c.Param("id"), w, breakdown)
	if err != nil {
		if errors.Is(err, services.ErrNoStats) {
			fail(c, http.StatusNotFound, ErrCodeNoData, "no recorded usage for this guild")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// GetErrorStats godoc
// @ID          getErrorStats
// @Summary     Failure groupings
// @Description Returns failed invocations grouped by command and verbatim error
// @Description message. The map is empty when nothing failed in the window.
// @Tags        Usage
// @Produce     json
//
// @Param       period  query  string  false "Trailing window (1h, 1d, 1w, 1m)"
//
// @Success     200  {object}  handlers.ErrorStatsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/errors [get]
func (h *Handlers) GetErrorStats(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	errs, err := h.usage.ErrorStats(c.Request.Context(), w)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ErrorStatsResponse{Period: c.Query("period"), Errors: errs})
}

// GetTrends godoc
// @ID          getTrends
// @Summary     Per-command hour-of-day buckets
// @Description Buckets each command's invocations within the window (default
// @Description 24h) by UTC hour of day.
// @Tags        Usage
// @Produce     json
//
// @Param       period  query  string  false "Trailing window (1h, 1d, 1w, 1m)"  default(1d)
//
// @Success     200  {object}  handlers.TrendsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/trends [get]
func (h *Handlers) GetTrends(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	var d time.Duration
	if w != nil {
		d = *w
	}
	trends, err := h.usage.UsageTrends(c.Request.Context(), d)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, TrendsResponse{Period: c.Query("period"), Trends: trends})
}

// GetTimeOfDay godoc
// @ID          getTimeOfDay
// @Summary     Overall hour-of-day histogram
// @Description Returns exactly 24 buckets ("00".."23"), zero-filled for hours
// @Description without activity, across all commands in the window.
// @Tags        Usage
// @Produce     json
//
// @Param       period  query  string  false "Trailing window (1h, 1d, 1w, 1m)"
//
// @Success     200  {object}  handlers.TimeOfDayResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /usage/timeofday [get]
func (h *Handlers) GetTimeOfDay(c *gin.Context) {
	w, okp := window(c)
	if !okp {
		return
	}
	hours, err := h.usage.TimeOfDayStats(c.Request.Context(), w)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, TimeOfDayResponse{Period: c.Query("period"), Hours: hours})
}
