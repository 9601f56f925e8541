package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
	"github.com/noah-isme/classroom-schedule-api/internal/service"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
	"github.com/noah-isme/classroom-schedule-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context) ([]models.Schedule, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Create(ctx context.Context, req service.CreateScheduleRequest) (*models.Schedule, error)
	Update(ctx context.Context, id string, req service.UpdateScheduleRequest) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
	AddSlots(ctx context.Context, id string, req service.AddSlotsRequest) (*models.Schedule, error)
	RemoveSlot(ctx context.Context, id, day, start string) (*models.SlotMutationResult, error)
	UpdateSlot(ctx context.Context, id string, req service.UpdateSlotRequest) (*models.SlotMutationResult, error)
	Timetable(ctx context.Context, id string) ([]models.TimetableDay, error)
}

// ScheduleHandler manages schedule CRUD and slot mutation endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Replace a schedule's slot sequence
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateScheduleRequest true "Slot sequence"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSlots godoc
// @Summary Append slots to a schedule
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.AddSlotsRequest true "Slots to append"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/slots [post]
func (h *ScheduleHandler) AddSlots(c *gin.Context) {
	var req service.AddSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.AddSlots(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// RemoveSlot godoc
// @Summary Remove a slot by its (day, start) key
// @Tags Slots
// @Produce json
// @Param id path string true "Schedule ID"
// @Param day query string true "Day of week"
// @Param start query string true "Start time HH:MM"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/slots [delete]
func (h *ScheduleHandler) RemoveSlot(c *gin.Context) {
	result, err := h.service.RemoveSlot(c.Request.Context(), c.Param("id"), c.Query("day"), c.Query("start"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateSlot godoc
// @Summary Rewrite the slot matching an old (day, start) key
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateSlotRequest true "Old key and new slot"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/slots [put]
func (h *ScheduleHandler) UpdateSlot(c *gin.Context) {
	var req service.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.UpdateSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Timetable godoc
// @Summary Weekly timetable view for one schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/timetable [get]
func (h *ScheduleHandler) Timetable(c *gin.Context) {
	days, err := h.service.Timetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}
