package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"botmetrics/internal/schedule"
	"botmetrics/internal/services"
)

// ---------- stubs ----------

// stubScheduler satisfies BriefingScheduler with canned behavior.
type stubScheduler struct {
	schedule   func(target, timeOfDay string, cadence services.Cadence, timezone string) (schedule.Task, error)
	unschedule func(target string) error
	list       func() []schedule.Task
}

func (s stubScheduler) Schedule(target, timeOfDay string, cadence services.Cadence, timezone string) (schedule.Task, error) {
	if s.schedule == nil {
		return schedule.Task{}, nil
	}
	return s.schedule(target, timeOfDay, cadence, timezone)
}

func (s stubScheduler) Unschedule(target string) error {
	if s.unschedule == nil {
		return nil
	}
	return s.unschedule(target)
}

func (s stubScheduler) List() []schedule.Task {
	if s.list == nil {
		return nil
	}
	return s.list()
}

// stubComposer satisfies BriefingComposer with canned behavior.
type stubComposer struct {
	compose       func(ctx context.Context, cadence services.Cadence) (*services.Briefing, error)
	composeWindow func(ctx context.Context, window time.Duration, topN int, title string) (*services.Briefing, error)
}

func (s stubComposer) Compose(ctx context.Context, cadence services.Cadence) (*services.Briefing, error) {
	return s.compose(ctx, cadence)
}

func (s stubComposer) ComposeWindow(ctx context.Context, window time.Duration, topN int, title string) (*services.Briefing, error) {
	return s.composeWindow(ctx, window, topN, title)
}

func newBriefingRouter(t *testing.T, h *Handlers) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	{
		v1.POST("/briefings", h.PostBriefing)
		v1.GET("/briefings", h.ListBriefings)
		v1.DELETE("/briefings/:target", h.DeleteBriefing)
		v1.GET("/briefings/preview", h.PreviewBriefing)
	}
	return r
}

// ---------- schedule ----------

func TestPostBriefing_OK(t *testing.T) {
	sched := stubScheduler{
		schedule: func(target, timeOfDay string, cadence services.Cadence, timezone string) (schedule.Task, error) {
			if target != "ops-room" || timeOfDay != "09:00" || cadence != services.CadenceDaily || timezone != "Europe/London" {
				t.Fatalf("unexpected args: %s %s %s %s", target, timeOfDay, cadence, timezone)
			}
			return schedule.Task{Target: target, Cadence: cadence, TimeOfDay: timeOfDay, Timezone: timezone}, nil
		},
	}
	r := newBriefingRouter(t, New(nil, nil, sched))

	w := doJSON(t, r, "POST", "/api/v1/briefings", ScheduleBriefingRequest{
		Target:    "ops-room",
		Cadence:   "daily",
		TimeOfDay: "09:00",
		Timezone:  "Europe/London",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp ScheduleBriefingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Briefing.Target != "ops-room" || resp.Briefing.Cadence != services.CadenceDaily {
		t.Fatalf("task = %+v", resp.Briefing)
	}
}

func TestPostBriefing_Validation(t *testing.T) {
	r := newBriefingRouter(t, New(nil, nil, stubScheduler{}))

	cases := []struct {
		name string
		body any
	}{
		{"missing target", ScheduleBriefingRequest{Cadence: "daily", TimeOfDay: "09:00"}},
		{"missing cadence", ScheduleBriefingRequest{Target: "ops", TimeOfDay: "09:00"}},
		{"unknown cadence", ScheduleBriefingRequest{Target: "ops", Cadence: "hourly", TimeOfDay: "09:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, "POST", "/api/v1/briefings", tc.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPostBriefing_SchedulerErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"duplicate", services.ErrDuplicateSchedule, http.StatusConflict, ErrCodeConflict},
		{"bad time", services.ErrInvalidTimeOfDay, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad timezone", services.ErrInvalidTimezone, http.StatusBadRequest, ErrCodeBadRequest},
		{"internal", errors.New("cron exploded"), http.StatusInternalServerError, ErrCodeBriefingFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sched := stubScheduler{
				schedule: func(string, string, services.Cadence, string) (schedule.Task, error) {
					return schedule.Task{}, tc.err
				},
			}
			r := newBriefingRouter(t, New(nil, nil, sched))
			w := doJSON(t, r, "POST", "/api/v1/briefings", ScheduleBriefingRequest{
				Target: "ops", Cadence: "daily", TimeOfDay: "09:00",
			}, nil)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tc.code {
				t.Fatalf("code = %q, want %q", resp.Code, tc.code)
			}
		})
	}
}

// ---------- list / delete ----------

func TestListBriefings_EmptyIsArray(t *testing.T) {
	r := newBriefingRouter(t, New(nil, nil, stubScheduler{}))
	w := doJSON(t, r, "GET", "/api/v1/briefings", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"briefings":[]`) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestListBriefings_ReturnsTasks(t *testing.T) {
	sched := stubScheduler{
		list: func() []schedule.Task {
			return []schedule.Task{
				{Target: "ops", Cadence: services.CadenceDaily, TimeOfDay: "09:00", Timezone: "UTC"},
				{Target: "ops", Cadence: services.CadenceWeekly, TimeOfDay: "10:00", Timezone: "UTC"},
			}
		},
	}
	r := newBriefingRouter(t, New(nil, nil, sched))
	w := doJSON(t, r, "GET", "/api/v1/briefings", nil, nil)
	var resp ListBriefingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Briefings) != 2 || resp.Briefings[1].Cadence != services.CadenceWeekly {
		t.Fatalf("briefings = %+v", resp.Briefings)
	}
}

func TestDeleteBriefing(t *testing.T) {
	sched := stubScheduler{
		unschedule: func(target string) error {
			if target == "ops" {
				return nil
			}
			return services.ErrScheduleNotFound
		},
	}
	r := newBriefingRouter(t, New(nil, nil, sched))

	if w := doJSON(t, r, "DELETE", "/api/v1/briefings/ops", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", w.Code)
	}
	w := doJSON(t, r, "DELETE", "/api/v1/briefings/ghost", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown: status = %d, want 404", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Fatalf("code = %q, want %q", resp.Code, ErrCodeNotFound)
	}
}

// ---------- preview ----------

func TestPreviewBriefing_CadencePath(t *testing.T) {
	comp := stubComposer{
		compose: func(_ context.Context, cadence services.Cadence) (*services.Briefing, error) {
			if cadence != services.CadenceWeekly {
				t.Fatalf("cadence = %s, want weekly", cadence)
			}
			return &services.Briefing{Title: "Weekly Command Usage Briefing"}, nil
		},
	}
	r := newBriefingRouter(t, New(nil, comp, stubScheduler{}))

	w := doJSON(t, r, "GET", "/api/v1/briefings/preview?cadence=weekly", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp PreviewBriefingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Briefing.Title != "Weekly Command Usage Briefing" {
		t.Fatalf("title = %q", resp.Briefing.Title)
	}
	if !strings.Contains(resp.Text, "Weekly Command Usage Briefing") {
		t.Fatalf("text = %q", resp.Text)
	}
}

func TestPreviewBriefing_PeriodPath(t *testing.T) {
	comp := stubComposer{
		composeWindow: func(_ context.Context, window time.Duration, topN int, title string) (*services.Briefing, error) {
			if window != 48*time.Hour {
				t.Fatalf("window = %s, want 48h", window)
			}
			return &services.Briefing{Title: "Command Usage Briefing"}, nil
		},
	}
	r := newBriefingRouter(t, New(nil, comp, stubScheduler{}))

	if w := doJSON(t, r, "GET", "/api/v1/briefings/preview?period=2d", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestPreviewBriefing_DefaultsToDaily(t *testing.T) {
	comp := stubComposer{
		compose: func(_ context.Context, cadence services.Cadence) (*services.Briefing, error) {
			if cadence != services.CadenceDaily {
				t.Fatalf("cadence = %s, want daily", cadence)
			}
			return &services.Briefing{Title: "Daily Command Usage Briefing"}, nil
		},
	}
	r := newBriefingRouter(t, New(nil, comp, stubScheduler{}))

	if w := doJSON(t, r, "GET", "/api/v1/briefings/preview", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestPreviewBriefing_Errors(t *testing.T) {
	r := newBriefingRouter(t, New(nil, stubComposer{
		compose: func(context.Context, services.Cadence) (*services.Briefing, error) {
			return nil, errors.New("db gone")
		},
	}, stubScheduler{}))

	if w := doJSON(t, r, "GET", "/api/v1/briefings/preview?cadence=yearly", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad cadence: status = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, "GET", "/api/v1/briefings/preview?period=eon", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad period: status = %d, want 400", w.Code)
	}
	w := doJSON(t, r, "GET", "/api/v1/briefings/preview", nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("compose error: status = %d, want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrCodeBriefingFailed {
		t.Fatalf("code = %q, want %q", resp.Code, ErrCodeBriefingFailed)
	}
}
