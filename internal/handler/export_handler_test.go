package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-schedule-api/internal/service"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
)

type exporterMock struct {
	result *service.ExportResult
	err    error

	lastID     string
	lastFormat service.ExportFormat
}

func (m *exporterMock) Timetable(ctx context.Context, scheduleID string, format service.ExportFormat) (*service.ExportResult, error) {
	m.lastID, m.lastFormat = scheduleID, format
	return m.result, m.err
}

func TestExportHandlerDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exporterMock{result: &service.ExportResult{
		Content:     []byte("Day,Start,End,Duration (min)\n"),
		ContentType: "text/csv",
		Filename:    "timetable-sched-1.csv",
	}}
	handler := NewExportHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/sched-1/export", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sched-1"}}

	handler.Timetable(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, mockSvc.lastFormat)
	assert.Equal(t, "sched-1", mockSvc.lastID)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable-sched-1.csv")
}

func TestExportHandlerUnknownSchedule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exporterMock{err: appErrors.Clone(appErrors.ErrNotFound, "schedule not found")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/missing/export?format=pdf", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Timetable(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
