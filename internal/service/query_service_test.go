package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
)

type queryRepoStub struct {
	schedules []models.Schedule
	err       error

	lastDay   models.DayOfWeek
	lastStart models.MinuteOfDay
	lastEnd   models.MinuteOfDay
	lastCount int
	lastDays  []models.DayOfWeek
	calls     int
}

func (s *queryRepoStub) FindByDay(ctx context.Context, day models.DayOfWeek) ([]models.Schedule, error) {
	s.calls++
	s.lastDay = day
	return s.schedules, s.err
}

func (s *queryRepoStub) FindOverlapping(ctx context.Context, day models.DayOfWeek, start, end models.MinuteOfDay) ([]models.Schedule, error) {
	s.calls++
	s.lastDay, s.lastStart, s.lastEnd = day, start, end
	return s.schedules, s.err
}

func (s *queryRepoStub) FindStartingBefore(ctx context.Context, day models.DayOfWeek, t models.MinuteOfDay) ([]models.Schedule, error) {
	s.calls++
	s.lastDay, s.lastStart = day, t
	return s.schedules, s.err
}

func (s *queryRepoStub) FindEndingAfter(ctx context.Context, day models.DayOfWeek, t models.MinuteOfDay) ([]models.Schedule, error) {
	s.calls++
	s.lastDay, s.lastEnd = day, t
	return s.schedules, s.err
}

func (s *queryRepoStub) FindBySlotCount(ctx context.Context, n int) ([]models.Schedule, error) {
	s.calls++
	s.lastCount = n
	return s.schedules, s.err
}

func (s *queryRepoStub) FindWithSlotCountAbove(ctx context.Context, n int) ([]models.Schedule, error) {
	s.calls++
	s.lastCount = n
	return s.schedules, s.err
}

func (s *queryRepoStub) FindByDays(ctx context.Context, days []models.DayOfWeek) ([]models.Schedule, error) {
	s.calls++
	s.lastDays = days
	return s.schedules, s.err
}

func (s *queryRepoStub) FindByMinimumDuration(ctx context.Context, minutes int) ([]models.Schedule, error) {
	s.calls++
	s.lastCount = minutes
	return s.schedules, s.err
}

type cacheRepoStub struct {
	store map[string][]byte
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{store: map[string][]byte{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.store = map[string][]byte{}
	return nil
}

func newQueryService(repo queryRepository, cacheRepo CacheRepository) *QueryService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	}
	return NewQueryService(repo, cache, nil, zap.NewNop())
}

func TestQueryServiceByDayOfWeek(t *testing.T) {
	repo := &queryRepoStub{schedules: []models.Schedule{{ID: "sched-1"}}}
	svc := newQueryService(repo, nil)

	schedules, err := svc.ByDayOfWeek(context.Background(), "monday")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, models.Monday, repo.lastDay)
}

func TestQueryServiceByDayOfWeekRejectsUnknownDay(t *testing.T) {
	svc := newQueryService(&queryRepoStub{}, nil)

	_, err := svc.ByDayOfWeek(context.Background(), "FUNDAY")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestQueryServiceConflictsParsesRange(t *testing.T) {
	repo := &queryRepoStub{schedules: []models.Schedule{{ID: "a"}, {ID: "b"}}}
	svc := newQueryService(repo, nil)

	schedules, err := svc.Conflicts(context.Background(), "MONDAY", "09:30", "10:15")
	require.NoError(t, err)
	assert.Len(t, schedules, 2)
	assert.Equal(t, models.Monday, repo.lastDay)
	assert.Equal(t, models.MinuteOfDay(570), repo.lastStart)
	assert.Equal(t, models.MinuteOfDay(615), repo.lastEnd)
}

func TestQueryServiceConflictsRejectsInvertedRange(t *testing.T) {
	svc := newQueryService(&queryRepoStub{}, nil)

	_, err := svc.Conflicts(context.Background(), "MONDAY", "11:00", "10:00")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestQueryServiceSingleAndMultiDayCounts(t *testing.T) {
	repo := &queryRepoStub{}
	svc := newQueryService(repo, nil)

	_, err := svc.WithSingleDay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastCount)

	_, err = svc.WithMultipleDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastCount)
}

func TestQueryServiceWeekdayWeekendPartition(t *testing.T) {
	repo := &queryRepoStub{}
	svc := newQueryService(repo, nil)

	_, err := svc.Weekday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.WeekdayDays, repo.lastDays)

	_, err = svc.Weekend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.WeekendDays, repo.lastDays)
}

func TestQueryServiceMinimumDurationValidation(t *testing.T) {
	svc := newQueryService(&queryRepoStub{}, nil)

	_, err := svc.ByMinimumSlotDuration(context.Background(), 0)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestQueryServiceCachesResults(t *testing.T) {
	repo := &queryRepoStub{schedules: []models.Schedule{{ID: "sched-1", Version: 1}}}
	cacheRepo := newCacheRepoStub()
	svc := newQueryService(repo, cacheRepo)

	first, err := svc.ByDayOfWeek(context.Background(), "MONDAY")
	require.NoError(t, err)
	second, err := svc.ByDayOfWeek(context.Background(), "MONDAY")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls, "second read must come from cache")
}

func TestQueryServiceCacheInvalidationForcesReload(t *testing.T) {
	repo := &queryRepoStub{schedules: []models.Schedule{{ID: "sched-1", Version: 1}}}
	cacheRepo := newCacheRepoStub()
	svc := newQueryService(repo, cacheRepo)

	_, err := svc.ByDayOfWeek(context.Background(), "MONDAY")
	require.NoError(t, err)

	// A schedule write clears every cached query.
	require.NoError(t, cacheRepo.DeleteByPattern(context.Background(), "schedules:q:*"))

	_, err = svc.ByDayOfWeek(context.Background(), "MONDAY")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
