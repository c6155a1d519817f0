// Briefing HTTP handlers.
//
// This file exposes REST endpoints for periodic usage briefings:
//   - POST   /briefings           (schedule a recurring delivery)
//   - GET    /briefings           (list scheduled deliveries)
//   - DELETE /briefings/{target}  (cancel a target's deliveries)
//   - GET    /briefings/preview   (compose one on demand)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"botmetrics/internal/schedule"
	"botmetrics/internal/services"
)

//
// DTOs
//

// ScheduleBriefingRequest is the JSON payload for scheduling a briefing.
type ScheduleBriefingRequest struct {
	// Target is the delivery destination, e.g. a channel or webhook name.
	Target string `json:"target" binding:"required,min=1,max=255" example:"ops-room"`
	// Cadence selects the briefing window: daily, weekly, or monthly.
	Cadence string `json:"cadence" binding:"required" example:"daily"`
	// TimeOfDay is the local delivery time in HH:MM (24h).
	TimeOfDay string `json:"time_of_day" binding:"required" example:"09:00"`
	// Timezone is an IANA zone name; defaults to UTC when empty.
	Timezone string `json:"timezone" example:"Europe/London"`
}

// ScheduleBriefingResponse wraps the registered delivery task.
type ScheduleBriefingResponse struct {
	Briefing schedule.Task `json:"briefing"`
}

// ListBriefingsResponse wraps all registered delivery tasks.
type ListBriefingsResponse struct {
	Briefings []schedule.Task `json:"briefings"`
}

// PreviewBriefingResponse carries a composed briefing plus its rendered text.
type PreviewBriefingResponse struct {
	Briefing *services.Briefing `json:"briefing"`
	Text     string             `json:"text"`
}

//
// Handlers
//

// PostBriefing godoc
// @ID          postBriefing
// @Summary     Schedule a recurring briefing
// @Description Registers a (target, cadence) delivery. The first delivery fires
// @Description at the next time_of_day occurrence in the given timezone, then
// @Description repeats every cadence window. A target may hold one schedule
// @Description per cadence; repeats yield 409 conflict.
// @Tags        Briefings
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ScheduleBriefingRequest  true  "Schedule request"
//
// @Success     201  {object}  handlers.ScheduleBriefingResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Already scheduled"
// @Router      /briefings [post]
func (h *Handlers) PostBriefing(c *gin.Context) {
	var req ScheduleBriefingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "target, cadence and time_of_day required")
		return
	}

	cadence, err := services.ParseCadence(req.Cadence)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	task, err := h.sched.Schedule(req.Target, req.TimeOfDay, cadence, req.Timezone)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateSchedule):
			fail(c, http.StatusConflict, ErrCodeConflict, "briefing already scheduled for this target and cadence")
		case errors.Is(err, services.ErrInvalidTarget),
			errors.Is(err, services.ErrInvalidTimeOfDay),
			errors.Is(err, services.ErrInvalidTimezone):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeBriefingFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, ScheduleBriefingResponse{Briefing: task})
}

// ListBriefings godoc
// @ID          listBriefings
// @Summary     List scheduled briefings
// @Description Returns every registered delivery with its next fire time,
// @Description ordered by target then cadence.
// @Tags        Briefings
// @Produce     json
//
// @Success     200  {object}  handlers.ListBriefingsResponse
// @Router      /briefings [get]
func (h *Handlers) ListBriefings(c *gin.Context) {
	tasks := h.sched.List()
	if tasks == nil {
		tasks = []schedule.Task{}
	}
	ok(c, http.StatusOK, ListBriefingsResponse{Briefings: tasks})
}

// DeleteBriefing godoc
// @ID          deleteBriefing
// @Summary     Cancel a target's briefings
// @Description Removes every scheduled cadence for the target. Unknown targets
// @Description yield 404.
// @Tags        Briefings
// @Produce     json
//
// @Param       target  path  string  true  "Delivery destination"  example(ops-room)
//
// @Success     204  "Cancelled"
// @Failure     404  {object}  handlers.ErrorResponse  "Not scheduled"
// @Router      /briefings/{target} [delete]
func (h *Handlers) DeleteBriefing(c *gin.Context) {
	if err := h.sched.Unschedule(c.Param("target")); err != nil {
		if errors.Is(err, services.ErrScheduleNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no briefing scheduled for this target")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeBriefingFailed, err.Error())
		return
	}
	noContent(c)
}

// PreviewBriefing godoc
// @ID          previewBriefing
// @Summary     Compose a briefing on demand
// @Description Assembles a briefing without delivering it. Pass cadence for the
// @Description standard daily/weekly/monthly shapes, or period for an
// @Description arbitrary trailing window (cadence wins when both are given).
// @Tags        Briefings
// @Produce     json
//
// @Param       cadence  query  string  false "daily|weekly|monthly"
// @Param       period   query  string  false "Trailing window (1h, 1d, 1w, 1m)"
//
// @Success     200  {object}  handlers.PreviewBriefingResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /briefings/preview [get]
func (h *Handlers) PreviewBriefing(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		br  *services.Briefing
		err error
	)
	switch {
	case c.Query("cadence") != "":
		cadence, perr := services.ParseCadence(c.Query("cadence"))
		if perr != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, perr.Error())
			return
		}
		br, err = h.briefings.Compose(ctx, cadence)
	case c.Query("period") != "":
		w, okp := window(c)
		if !okp {
			return
		}
		br, err = h.briefings.ComposeWindow(ctx, *w, 0, "")
	default:
		br, err = h.briefings.Compose(ctx, services.CadenceDaily)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeBriefingFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, PreviewBriefingResponse{Briefing: br, Text: br.Text()})
}
