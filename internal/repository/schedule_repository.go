package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
)

// ErrVersionConflict is returned when a schedule write loses the optimistic
// version check to a concurrent writer.
var ErrVersionConflict = errors.New("schedule version conflict")

const scheduleColumns = "s.id, s.version, s.created_at, s.updated_at"

// ScheduleRepository provides persistence for schedules and their slots.
// Slots live in a child table ordered by position, so the aggregate is
// always written and read as a whole.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create stores a new schedule together with its slot sequence.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	schedule.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schedules (id, version, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		schedule.ID, schedule.Version, schedule.CreatedAt, schedule.UpdatedAt); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}

	if err = r.insertSlots(ctx, tx, schedule.ID, schedule.Slots); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create schedule: %w", err)
	}
	return nil
}

// FindByID loads a schedule and its slots by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `SELECT s.id, s.version, s.created_at, s.updated_at FROM schedules s WHERE s.id = $1`
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	if err := r.attachSlots(ctx, []*models.Schedule{&sched}); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListAll returns every schedule with slots attached.
func (r *ScheduleRepository) ListAll(ctx context.Context) ([]models.Schedule, error) {
	return r.selectSchedules(ctx,
		fmt.Sprintf("SELECT %s FROM schedules s ORDER BY s.created_at ASC", scheduleColumns))
}

// ReplaceSlots rewrites the slot sequence of a schedule under the optimistic
// version check. The caller passes the version it read; a concurrent write in
// between surfaces as ErrVersionConflict.
func (r *ScheduleRepository) ReplaceSlots(ctx context.Context, schedule *models.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace slots: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE schedules SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3`,
		now, schedule.ID, schedule.Version)
	if err != nil {
		return fmt.Errorf("bump schedule version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace slots rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrVersionConflict
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE schedule_id = $1`, schedule.ID); err != nil {
		return fmt.Errorf("clear schedule slots: %w", err)
	}
	if err = r.insertSlots(ctx, tx, schedule.ID, schedule.Slots); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace slots: %w", err)
	}

	schedule.Version++
	schedule.UpdatedAt = now
	return nil
}

// Delete removes a schedule and its slots. Returns sql.ErrNoRows when the id
// is unknown.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByDay returns schedules owning at least one slot on the given day.
func (r *ScheduleRepository) FindByDay(ctx context.Context, day models.DayOfWeek) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s WHERE EXISTS (
SELECT 1 FROM schedule_slots sl WHERE sl.schedule_id = s.id AND sl.day_of_week = $1)
ORDER BY s.created_at ASC`, scheduleColumns)
	return r.selectSchedules(ctx, query, string(day))
}

// FindOverlapping returns schedules with a slot on the given day whose
// interval touches or crosses [start, end]. The boundary comparison is
// inclusive on both ends; conflict detection depends on exactly this rule.
func (r *ScheduleRepository) FindOverlapping(ctx context.Context, day models.DayOfWeek, start, end models.MinuteOfDay) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s WHERE EXISTS (
SELECT 1 FROM schedule_slots sl WHERE sl.schedule_id = s.id AND sl.day_of_week = $1
AND sl.start_minute <= $2 AND sl.end_minute >= $3)
ORDER BY s.created_at ASC`, scheduleColumns)
	return r.selectSchedules(ctx, query, string(day), int(end), int(start))
}

// FindStartingBefore returns schedules with a slot on the day starting at or
// before the given time.
func (r *ScheduleRepository) FindStartingBefore(ctx context.Context, day models.DayOfWeek, t models.MinuteOfDay) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s WHERE EXISTS (
SELECT 1 FROM schedule_slots sl WHERE sl.schedule_id = s.id AND sl.day_of_week = $1 AND sl.start_minute <= $2)
ORDER BY s.created_at ASC`, scheduleColumns)
	return r.selectSchedules(ctx, query, string(day), int(t))
}

// FindEndingAfter returns schedules with a slot on the day ending at or after
// the given time.
func (r *ScheduleRepository) FindEndingAfter(ctx context.Context, day models.DayOfWeek, t models.MinuteOfDay) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s WHERE EXISTS (
SELECT 1 FROM schedule_slots sl WHERE sl.schedule_id = s.id AND sl.day_of_week = $1 AND sl.end_minute >= $2)
ORDER BY s.created_at ASC`, scheduleColumns)
	return r.selectSchedules(ctx, query, string(day), int(t))
}

// FindBySlotCount returns schedules whose slot sequence has exactly n entries.
func (r *ScheduleRepository) FindBySlotCount(ctx context.Context, n int) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s
WHERE (SELECT COUNT(*) FROM schedule_slots sl WHERE sl.schedule_id = s.id) = $1
ORDER BY s.created_at ASC`, scheduleColumns)
	return r.selectSchedules(ctx, query, n)
}

// FindWithSlotCountAbove returns schedules with more than n slots.
func (r *ScheduleRepository) FindWithSlotCountAbove(ctx context.Context, n int) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s
WHERE (SELECT COUNT(*) FROM schedule_slots sl WHERE sl.schedule_id = s.id) > $1
ORDER BY s.created_at ASC`, scheduleColumns)
	return r.selectSchedules(ctx, query, n)
}

// FindByDays returns schedules owning at least one slot on any of the given days.
func (r *ScheduleRepository) FindByDays(ctx context.Context, days []models.DayOfWeek) ([]models.Schedule, error) {
	if len(days) == 0 {
		return nil, nil
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = string(d)
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM schedules s WHERE EXISTS (
SELECT 1 FROM schedule_slots sl WHERE sl.schedule_id = s.id AND sl.day_of_week IN (?))
ORDER BY s.created_at ASC`, scheduleColumns), names)
	if err != nil {
		return nil, fmt.Errorf("expand day list: %w", err)
	}
	return r.selectSchedules(ctx, r.db.Rebind(query), args...)
}

// FindByMinimumDuration returns schedules containing at least one slot whose
// own duration is minutes or longer.
func (r *ScheduleRepository) FindByMinimumDuration(ctx context.Context, minutes int) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules s WHERE EXISTS (
SELECT 1 FROM schedule_slots sl WHERE sl.schedule_id = s.id AND sl.end_minute - sl.start_minute >= $1)
ORDER BY s.created_at ASC`, scheduleColumns)
	return r.selectSchedules(ctx, query, minutes)
}

func (r *ScheduleRepository) insertSlots(ctx context.Context, exec sqlx.ExtContext, scheduleID string, slots []models.Slot) error {
	for i, slot := range slots {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO schedule_slots (schedule_id, position, day_of_week, start_minute, end_minute) VALUES ($1, $2, $3, $4, $5)`,
			scheduleID, i, string(slot.DayOfWeek), int(slot.StartMinute), int(slot.EndMinute)); err != nil {
			return fmt.Errorf("insert schedule slot: %w", err)
		}
	}
	return nil
}

func (r *ScheduleRepository) selectSchedules(ctx context.Context, query string, args ...interface{}) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("select schedules: %w", err)
	}
	refs := make([]*models.Schedule, len(schedules))
	for i := range schedules {
		refs[i] = &schedules[i]
	}
	if err := r.attachSlots(ctx, refs); err != nil {
		return nil, err
	}
	return schedules, nil
}

type slotRow struct {
	ScheduleID string `db:"schedule_id"`
	models.Slot
}

// attachSlots loads the slot sequences for the given schedules in one query,
// preserving each schedule's position order.
func (r *ScheduleRepository) attachSlots(ctx context.Context, schedules []*models.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	ids := make([]string, len(schedules))
	byID := make(map[string]*models.Schedule, len(schedules))
	for i, sched := range schedules {
		ids[i] = sched.ID
		sched.Slots = []models.Slot{}
		byID[sched.ID] = sched
	}

	query, args, err := sqlx.In(`SELECT sl.schedule_id, sl.day_of_week, sl.start_minute, sl.end_minute
FROM schedule_slots sl WHERE sl.schedule_id IN (?) ORDER BY sl.schedule_id, sl.position ASC`, ids)
	if err != nil {
		return fmt.Errorf("expand schedule ids: %w", err)
	}

	var rows []slotRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("select schedule slots: %w", err)
	}
	for _, row := range rows {
		if sched, ok := byID[row.ScheduleID]; ok {
			sched.Slots = append(sched.Slots, row.Slot)
		}
	}
	return nil
}
