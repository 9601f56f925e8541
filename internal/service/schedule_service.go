package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
	"github.com/noah-isme/classroom-schedule-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
)

type scheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListAll(ctx context.Context) ([]models.Schedule, error)
	ReplaceSlots(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

// SlotPayload describes one weekly slot in request bodies. Times are "HH:MM".
type SlotPayload struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// CreateScheduleRequest creates a schedule; at least one slot is required.
type CreateScheduleRequest struct {
	Slots []SlotPayload `json:"slots" validate:"required,min=1,dive"`
}

// UpdateScheduleRequest replaces the whole slot sequence. An empty list is
// allowed: updates may shrink a schedule to zero slots.
type UpdateScheduleRequest struct {
	Slots []SlotPayload `json:"slots" validate:"dive"`
}

// AddSlotsRequest appends one or more slots to a schedule.
type AddSlotsRequest struct {
	Slots []SlotPayload `json:"slots" validate:"required,min=1,dive"`
}

// UpdateSlotRequest rewrites the first slot matching the old key.
type UpdateSlotRequest struct {
	OldDayOfWeek string      `json:"old_day_of_week" validate:"required"`
	OldStartTime string      `json:"old_start_time" validate:"required"`
	Slot         SlotPayload `json:"slot"`
}

const defaultWriteRetries = 3

// ScheduleService owns schedule CRUD and keyed slot mutation. Every write
// rewrites the whole aggregate under the version check; lost races retry with
// a fresh read before giving up with a precondition failure.
type ScheduleService struct {
	repo      scheduleRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	retries   int
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, retries int) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retries <= 0 {
		retries = defaultWriteRetries
	}
	return &ScheduleService{repo: repo, cache: cache, validator: validate, logger: logger, retries: retries}
}

// Create stores a new schedule with the given non-empty slot sequence.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	slots, err := parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}

	schedule := &models.Schedule{Slots: slots}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.cache.InvalidateQueries(ctx)
	return schedule, nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapScheduleLookup(err)
	}
	return schedule, nil
}

// List returns all schedules.
func (s *ScheduleService) List(ctx context.Context) ([]models.Schedule, error) {
	schedules, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, nil
}

// Update replaces the schedule's entire slot sequence.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	slots, err := parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}

	return s.write(ctx, id, func(schedule *models.Schedule) bool {
		schedule.Slots = slots
		return true
	})
}

// Delete removes a schedule. No referential check is made against classrooms
// holding the schedule id; that reference lives in the classroom service.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapScheduleLookup(err)
	}
	s.cache.InvalidateQueries(ctx)
	return nil
}

// AddSlot appends a single slot. Duplicate keys are not rejected.
func (s *ScheduleService) AddSlot(ctx context.Context, id string, payload SlotPayload) (*models.Schedule, error) {
	return s.AddSlots(ctx, id, AddSlotsRequest{Slots: []SlotPayload{payload}})
}

// AddSlots bulk-appends slots in one write.
func (s *ScheduleService) AddSlots(ctx context.Context, id string, req AddSlotsRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	slots, err := parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}

	return s.write(ctx, id, func(schedule *models.Schedule) bool {
		schedule.Slots = append(schedule.Slots, slots...)
		return true
	})
}

// RemoveSlot removes the first slot matching (day, start). A missing key is
// reported as a NO_MATCH outcome rather than an error; the schedule is left
// untouched.
func (s *ScheduleService) RemoveSlot(ctx context.Context, id, day, start string) (*models.SlotMutationResult, error) {
	key, keyStart, err := parseSlotKey(day, start)
	if err != nil {
		return nil, err
	}

	matched := false
	schedule, err := s.write(ctx, id, func(schedule *models.Schedule) bool {
		idx := schedule.SlotIndex(key, keyStart)
		if idx < 0 {
			matched = false
			return false
		}
		matched = true
		schedule.Slots = append(schedule.Slots[:idx], schedule.Slots[idx+1:]...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return mutationResult(matched, schedule), nil
}

// UpdateSlot overwrites the first slot matching the old key with the new slot
// values. A missing key is a NO_MATCH outcome.
func (s *ScheduleService) UpdateSlot(ctx context.Context, id string, req UpdateSlotRequest) (*models.SlotMutationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	key, keyStart, err := parseSlotKey(req.OldDayOfWeek, req.OldStartTime)
	if err != nil {
		return nil, err
	}
	slot, err := parseSlot(req.Slot)
	if err != nil {
		return nil, err
	}

	matched := false
	schedule, err := s.write(ctx, id, func(schedule *models.Schedule) bool {
		idx := schedule.SlotIndex(key, keyStart)
		if idx < 0 {
			matched = false
			return false
		}
		matched = true
		schedule.Slots[idx] = slot
		return true
	})
	if err != nil {
		return nil, err
	}
	return mutationResult(matched, schedule), nil
}

// Timetable groups a schedule's slots by day in week order, each day sorted
// by start time.
func (s *ScheduleService) Timetable(ctx context.Context, id string) ([]models.TimetableDay, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	grouped := make(map[models.DayOfWeek][]models.Slot, len(models.Days))
	for _, slot := range schedule.Slots {
		grouped[slot.DayOfWeek] = append(grouped[slot.DayOfWeek], slot)
	}

	days := make([]models.TimetableDay, 0, len(grouped))
	for _, day := range models.Days {
		slots, ok := grouped[day]
		if !ok {
			continue
		}
		sort.SliceStable(slots, func(i, j int) bool {
			return slots[i].StartMinute < slots[j].StartMinute
		})
		days = append(days, models.TimetableDay{Day: day, Slots: slots})
	}
	return days, nil
}

// write runs a read-modify-write cycle under the optimistic version check.
// The apply callback reports whether it changed the slot sequence; an
// unchanged schedule skips the write entirely.
func (s *ScheduleService) write(ctx context.Context, id string, apply func(*models.Schedule) bool) (*models.Schedule, error) {
	for attempt := 0; attempt < s.retries; attempt++ {
		schedule, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, mapScheduleLookup(err)
		}

		if !apply(schedule) {
			return schedule, nil
		}

		err = s.repo.ReplaceSlots(ctx, schedule)
		if err == nil {
			s.cache.InvalidateQueries(ctx)
			return schedule, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write schedule")
		}
		s.logger.Warn("schedule write lost version race, retrying",
			zap.String("schedule_id", id), zap.Int("attempt", attempt+1))
	}
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule was modified concurrently")
}

func mutationResult(matched bool, schedule *models.Schedule) *models.SlotMutationResult {
	outcome := models.OutcomeNoMatch
	if matched {
		outcome = models.OutcomeMutated
	}
	return &models.SlotMutationResult{Outcome: outcome, Schedule: schedule}
}

func parseSlots(payloads []SlotPayload) ([]models.Slot, error) {
	slots := make([]models.Slot, 0, len(payloads))
	for _, payload := range payloads {
		slot, err := parseSlot(payload)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func parseSlot(payload SlotPayload) (models.Slot, error) {
	day := models.DayOfWeek(strings.ToUpper(payload.DayOfWeek))
	if !day.Valid() {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", payload.DayOfWeek))
	}
	start, err := models.ParseClock(payload.StartTime)
	if err != nil {
		return models.Slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := models.ParseClock(payload.EndTime)
	if err != nil {
		return models.Slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if start >= end {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, "slot start time must be before end time")
	}
	return models.Slot{DayOfWeek: day, StartMinute: start, EndMinute: end}, nil
}

func parseSlotKey(day, start string) (models.DayOfWeek, models.MinuteOfDay, error) {
	parsedDay := models.DayOfWeek(strings.ToUpper(day))
	if !parsedDay.Valid() {
		return "", 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", day))
	}
	parsedStart, err := models.ParseClock(start)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	return parsedDay, parsedStart, nil
}

func mapScheduleLookup(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule lookup failed")
}
