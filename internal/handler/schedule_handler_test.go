package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
	"github.com/noah-isme/classroom-schedule-api/internal/service"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
	"github.com/noah-isme/classroom-schedule-api/pkg/response"
)

type scheduleServiceMock struct {
	schedule  *models.Schedule
	schedules []models.Schedule
	result    *models.SlotMutationResult
	timetable []models.TimetableDay
	err       error

	lastID    string
	lastDay   string
	lastStart string
	createReq service.CreateScheduleRequest
}

func (m *scheduleServiceMock) List(ctx context.Context) ([]models.Schedule, error) {
	return m.schedules, m.err
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string) (*models.Schedule, error) {
	m.lastID = id
	return m.schedule, m.err
}

func (m *scheduleServiceMock) Create(ctx context.Context, req service.CreateScheduleRequest) (*models.Schedule, error) {
	m.createReq = req
	return m.schedule, m.err
}

func (m *scheduleServiceMock) Update(ctx context.Context, id string, req service.UpdateScheduleRequest) (*models.Schedule, error) {
	m.lastID = id
	return m.schedule, m.err
}

func (m *scheduleServiceMock) Delete(ctx context.Context, id string) error {
	m.lastID = id
	return m.err
}

func (m *scheduleServiceMock) AddSlots(ctx context.Context, id string, req service.AddSlotsRequest) (*models.Schedule, error) {
	m.lastID = id
	return m.schedule, m.err
}

func (m *scheduleServiceMock) RemoveSlot(ctx context.Context, id, day, start string) (*models.SlotMutationResult, error) {
	m.lastID, m.lastDay, m.lastStart = id, day, start
	return m.result, m.err
}

func (m *scheduleServiceMock) UpdateSlot(ctx context.Context, id string, req service.UpdateSlotRequest) (*models.SlotMutationResult, error) {
	m.lastID = id
	return m.result, m.err
}

func (m *scheduleServiceMock) Timetable(ctx context.Context, id string) ([]models.TimetableDay, error) {
	m.lastID = id
	return m.timetable, m.err
}

func TestScheduleHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{schedule: &models.Schedule{ID: "sched-1", Version: 1}}
	handler := NewScheduleHandler(mockSvc)

	body := `{"slots":[{"day_of_week":"MONDAY","start_time":"09:00","end_time":"10:00"}]}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, mockSvc.createReq.Slots, 1)
	assert.Equal(t, "MONDAY", mockSvc.createReq.Slots[0].DayOfWeek)
}

func TestScheduleHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules", bytes.NewBufferString(`{"slots":[`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{err: appErrors.ErrNotFound})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, envelope.Error.Code)
}

func TestScheduleHandlerRemoveSlotPassesKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{result: &models.SlotMutationResult{
		Outcome:  models.OutcomeNoMatch,
		Schedule: &models.Schedule{ID: "sched-1"},
	}}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/schedules/sched-1/slots?day=FRIDAY&start=08:00", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.RemoveSlot(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sched-1", mockSvc.lastID)
	assert.Equal(t, "FRIDAY", mockSvc.lastDay)
	assert.Equal(t, "08:00", mockSvc.lastStart)
	assert.Contains(t, w.Body.String(), string(models.OutcomeNoMatch))
}

func TestScheduleHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/schedules/sched-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "sched-1", mockSvc.lastID)
}
