package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
	"github.com/noah-isme/classroom-schedule-api/pkg/response"
)

type queryService interface {
	ByDayOfWeek(ctx context.Context, day string) ([]models.Schedule, error)
	ByDayAndTimeRange(ctx context.Context, day, start, end string) ([]models.Schedule, error)
	Conflicts(ctx context.Context, day, start, end string) ([]models.Schedule, error)
	StartingBefore(ctx context.Context, day, at string) ([]models.Schedule, error)
	EndingAfter(ctx context.Context, day, at string) ([]models.Schedule, error)
	ByDayCount(ctx context.Context, n int) ([]models.Schedule, error)
	WithSingleDay(ctx context.Context) ([]models.Schedule, error)
	WithMultipleDays(ctx context.Context) ([]models.Schedule, error)
	Weekday(ctx context.Context) ([]models.Schedule, error)
	Weekend(ctx context.Context) ([]models.Schedule, error)
	ByMinimumSlotDuration(ctx context.Context, minutes int) ([]models.Schedule, error)
}

// QueryHandler exposes the population-wide classification and overlap queries.
type QueryHandler struct {
	service queryService
}

// NewQueryHandler constructs handler.
func NewQueryHandler(svc queryService) *QueryHandler {
	return &QueryHandler{service: svc}
}

// ByDay godoc
// @Summary Schedules with a slot on the given day
// @Tags Queries
// @Produce json
// @Param day path string true "Day of week"
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/day/{day} [get]
func (h *QueryHandler) ByDay(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.ByDayOfWeek(c.Request.Context(), c.Param("day"))
	})
}

// Overlap godoc
// @Summary Schedules overlapping a day/time range (inclusive boundaries)
// @Tags Queries
// @Produce json
// @Param day query string true "Day of week"
// @Param start query string true "Range start HH:MM"
// @Param end query string true "Range end HH:MM"
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/overlap [get]
func (h *QueryHandler) Overlap(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.ByDayAndTimeRange(c.Request.Context(), c.Query("day"), c.Query("start"), c.Query("end"))
	})
}

// Conflicts godoc
// @Summary Schedules colliding with a proposed slot
// @Tags Queries
// @Produce json
// @Param day query string true "Day of week"
// @Param start query string true "Proposed start HH:MM"
// @Param end query string true "Proposed end HH:MM"
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/conflicts [get]
func (h *QueryHandler) Conflicts(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.Conflicts(c.Request.Context(), c.Query("day"), c.Query("start"), c.Query("end"))
	})
}

// StartingBefore godoc
// @Summary Schedules with a slot on the day starting at or before a time
// @Tags Queries
// @Produce json
// @Param day query string true "Day of week"
// @Param time query string true "Time HH:MM"
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/starting-before [get]
func (h *QueryHandler) StartingBefore(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.StartingBefore(c.Request.Context(), c.Query("day"), c.Query("time"))
	})
}

// EndingAfter godoc
// @Summary Schedules with a slot on the day ending at or after a time
// @Tags Queries
// @Produce json
// @Param day query string true "Day of week"
// @Param time query string true "Time HH:MM"
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/ending-after [get]
func (h *QueryHandler) EndingAfter(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.EndingAfter(c.Request.Context(), c.Query("day"), c.Query("time"))
	})
}

// BySlotCount godoc
// @Summary Schedules with exactly n slots
// @Tags Queries
// @Produce json
// @Param count path int true "Slot count"
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/slot-count/{count} [get]
func (h *QueryHandler) BySlotCount(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("count"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "slot count must be an integer"))
		return
	}
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.ByDayCount(c.Request.Context(), n)
	})
}

// SingleDay godoc
// @Summary Schedules holding exactly one slot
// @Tags Queries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/single-day [get]
func (h *QueryHandler) SingleDay(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.WithSingleDay(c.Request.Context())
	})
}

// MultiDay godoc
// @Summary Schedules holding more than one slot
// @Tags Queries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/multi-day [get]
func (h *QueryHandler) MultiDay(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.WithMultipleDays(c.Request.Context())
	})
}

// Weekday godoc
// @Summary Schedules with at least one Monday-to-Friday slot
// @Tags Queries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/weekday [get]
func (h *QueryHandler) Weekday(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.Weekday(c.Request.Context())
	})
}

// Weekend godoc
// @Summary Schedules with at least one Saturday or Sunday slot
// @Tags Queries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/weekend [get]
func (h *QueryHandler) Weekend(c *gin.Context) {
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.Weekend(c.Request.Context())
	})
}

// MinDuration godoc
// @Summary Schedules with at least one slot of the given length
// @Tags Queries
// @Produce json
// @Param minutes path int true "Minimum slot duration in minutes"
// @Success 200 {object} response.Envelope
// @Router /schedule-queries/min-duration/{minutes} [get]
func (h *QueryHandler) MinDuration(c *gin.Context) {
	minutes, err := strconv.Atoi(c.Param("minutes"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "minutes must be an integer"))
		return
	}
	h.respond(c, func() ([]models.Schedule, error) {
		return h.service.ByMinimumSlotDuration(c.Request.Context(), minutes)
	})
}

func (h *QueryHandler) respond(c *gin.Context, load func() ([]models.Schedule, error)) {
	schedules, err := load()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}
