package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func scheduleRows(now time.Time, ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, 1, now, now)
	}
	return rows
}

func TestScheduleRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.version, s.created_at, s.updated_at FROM schedules s WHERE s.id = $1")).
		WithArgs("sched-1").
		WillReturnRows(scheduleRows(now, "sched-1"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sl.schedule_id, sl.day_of_week, sl.start_minute, sl.end_minute")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "day_of_week", "start_minute", "end_minute"}).
			AddRow("sched-1", "MONDAY", 540, 600).
			AddRow("sched-1", "WEDNESDAY", 840, 960))

	sched, err := repo.FindByID(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Len(t, sched.Slots, 2)
	assert.Equal(t, models.Monday, sched.Slots[0].DayOfWeek)
	assert.Equal(t, models.MinuteOfDay(540), sched.Slots[0].StartMinute)
	assert.Equal(t, 120, sched.Slots[1].Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("sched-99").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "sched-99")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WithArgs(sqlmock.AnyArg(), 0, "MONDAY", 540, 600).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sched := &models.Schedule{Slots: []models.Slot{
		{DayOfWeek: models.Monday, StartMinute: 540, EndMinute: 600},
	}}
	require.NoError(t, repo.Create(context.Background(), sched))
	assert.NotEmpty(t, sched.ID)
	assert.Equal(t, 1, sched.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceSlots(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET version = version + 1")).
		WithArgs(sqlmock.AnyArg(), "sched-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_slots WHERE schedule_id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WithArgs("sched-1", 0, "FRIDAY", 480, 570).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sched := &models.Schedule{ID: "sched-1", Version: 3, Slots: []models.Slot{
		{DayOfWeek: models.Friday, StartMinute: 480, EndMinute: 570},
	}}
	require.NoError(t, repo.ReplaceSlots(context.Background(), sched))
	assert.Equal(t, 4, sched.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceSlotsVersionConflict(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET version = version + 1")).
		WithArgs(sqlmock.AnyArg(), "sched-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	sched := &models.Schedule{ID: "sched-1", Version: 3}
	err := repo.ReplaceSlots(context.Background(), sched)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 3, sched.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1")).
		WithArgs("sched-99").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "sched-99")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleRepositoryFindOverlappingArgOrder(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	// Inclusive overlap binds the range end against start_minute and the
	// range start against end_minute.
	mock.ExpectQuery(regexp.QuoteMeta("sl.start_minute <= $2 AND sl.end_minute >= $3")).
		WithArgs("MONDAY", 615, 570).
		WillReturnRows(scheduleRows(now, "sched-1", "sched-2"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sl.schedule_id")).
		WithArgs("sched-1", "sched-2").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "day_of_week", "start_minute", "end_minute"}).
			AddRow("sched-1", "MONDAY", 540, 630).
			AddRow("sched-2", "MONDAY", 600, 660))

	schedules, err := repo.FindOverlapping(context.Background(), models.Monday, 570, 615)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "sched-1", schedules[0].ID)
	require.Len(t, schedules[1].Slots, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByDays(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("sl.day_of_week IN ($1, $2)")).
		WithArgs("SATURDAY", "SUNDAY").
		WillReturnRows(scheduleRows(now, "sched-7"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sl.schedule_id")).
		WithArgs("sched-7").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "day_of_week", "start_minute", "end_minute"}).
			AddRow("sched-7", "SATURDAY", 600, 720))

	schedules, err := repo.FindByDays(context.Background(), models.WeekendDays)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, models.Saturday, schedules[0].Slots[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByMinimumDuration(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("sl.end_minute - sl.start_minute >= $1")).
		WithArgs(90).
		WillReturnRows(scheduleRows(now, "sched-1"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sl.schedule_id")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "day_of_week", "start_minute", "end_minute"}).
			AddRow("sched-1", "WEDNESDAY", 840, 960))

	schedules, err := repo.FindByMinimumDuration(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
