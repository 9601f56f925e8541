package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-schedule-api/internal/models"
	appErrors "github.com/noah-isme/classroom-schedule-api/pkg/errors"
)

type queryRepository interface {
	FindByDay(ctx context.Context, day models.DayOfWeek) ([]models.Schedule, error)
	FindOverlapping(ctx context.Context, day models.DayOfWeek, start, end models.MinuteOfDay) ([]models.Schedule, error)
	FindStartingBefore(ctx context.Context, day models.DayOfWeek, t models.MinuteOfDay) ([]models.Schedule, error)
	FindEndingAfter(ctx context.Context, day models.DayOfWeek, t models.MinuteOfDay) ([]models.Schedule, error)
	FindBySlotCount(ctx context.Context, n int) ([]models.Schedule, error)
	FindWithSlotCountAbove(ctx context.Context, n int) ([]models.Schedule, error)
	FindByDays(ctx context.Context, days []models.DayOfWeek) ([]models.Schedule, error)
	FindByMinimumDuration(ctx context.Context, minutes int) ([]models.Schedule, error)
}

// QueryService answers read-only classification and overlap queries over the
// whole schedule population. Results are cached per operation and parameters;
// every schedule write invalidates the cache wholesale.
type QueryService struct {
	repo    queryRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewQueryService instantiates QueryService.
func NewQueryService(repo queryRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// ByDayOfWeek returns schedules with at least one slot on the given day.
func (s *QueryService) ByDayOfWeek(ctx context.Context, day string) ([]models.Schedule, error) {
	parsed, err := parseDay(day)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("schedules:q:day:%s", parsed)
	return s.cached(ctx, "by_day", key, func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindByDay(ctx, parsed)
	})
}

// ByDayAndTimeRange returns schedules with a slot on the day overlapping the
// inclusive [start, end] range. Touching intervals count as overlapping.
func (s *QueryService) ByDayAndTimeRange(ctx context.Context, day, start, end string) ([]models.Schedule, error) {
	parsed, rangeStart, rangeEnd, err := parseRange(day, start, end)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("schedules:q:overlap:%s:%d:%d", parsed, rangeStart, rangeEnd)
	return s.cached(ctx, "overlap", key, func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindOverlapping(ctx, parsed, rangeStart, rangeEnd)
	})
}

// Conflicts is the pre-assignment check: it applies the same inclusive
// overlap predicate as ByDayAndTimeRange against a proposed slot.
func (s *QueryService) Conflicts(ctx context.Context, day, start, end string) ([]models.Schedule, error) {
	parsed, rangeStart, rangeEnd, err := parseRange(day, start, end)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("schedules:q:conflicts:%s:%d:%d", parsed, rangeStart, rangeEnd)
	return s.cached(ctx, "conflicts", key, func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindOverlapping(ctx, parsed, rangeStart, rangeEnd)
	})
}

// StartingBefore returns schedules with a slot on the day starting at or
// before the given time.
func (s *QueryService) StartingBefore(ctx context.Context, day, at string) ([]models.Schedule, error) {
	parsed, t, err := parseDayTime(day, at)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("schedules:q:starting-before:%s:%d", parsed, t)
	return s.cached(ctx, "starting_before", key, func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindStartingBefore(ctx, parsed, t)
	})
}

// EndingAfter returns schedules with a slot on the day ending at or after the
// given time.
func (s *QueryService) EndingAfter(ctx context.Context, day, at string) ([]models.Schedule, error) {
	parsed, t, err := parseDayTime(day, at)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("schedules:q:ending-after:%s:%d", parsed, t)
	return s.cached(ctx, "ending_after", key, func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindEndingAfter(ctx, parsed, t)
	})
}

// ByDayCount returns schedules whose slot sequence has exactly n entries.
// Cardinality counts slots, not distinct days.
func (s *QueryService) ByDayCount(ctx context.Context, n int) ([]models.Schedule, error) {
	if n < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot count must not be negative")
	}
	key := fmt.Sprintf("schedules:q:count:%d", n)
	return s.cached(ctx, "by_count", key, func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindBySlotCount(ctx, n)
	})
}

// WithSingleDay returns schedules holding exactly one slot.
func (s *QueryService) WithSingleDay(ctx context.Context) ([]models.Schedule, error) {
	return s.cached(ctx, "single_day", "schedules:q:single-day", func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindBySlotCount(ctx, 1)
	})
}

// WithMultipleDays returns schedules holding more than one slot.
func (s *QueryService) WithMultipleDays(ctx context.Context) ([]models.Schedule, error) {
	return s.cached(ctx, "multi_day", "schedules:q:multi-day", func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindWithSlotCountAbove(ctx, 1)
	})
}

// Weekday returns schedules with at least one Monday-to-Friday slot.
func (s *QueryService) Weekday(ctx context.Context) ([]models.Schedule, error) {
	return s.cached(ctx, "weekday", "schedules:q:weekday", func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindByDays(ctx, models.WeekdayDays)
	})
}

// Weekend returns schedules with at least one Saturday or Sunday slot.
func (s *QueryService) Weekend(ctx context.Context) ([]models.Schedule, error) {
	return s.cached(ctx, "weekend", "schedules:q:weekend", func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindByDays(ctx, models.WeekendDays)
	})
}

// ByMinimumSlotDuration returns schedules with at least one slot of the given
// length or longer. The threshold applies per slot, never summed.
func (s *QueryService) ByMinimumSlotDuration(ctx context.Context, minutes int) ([]models.Schedule, error) {
	if minutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "minimum duration must be positive")
	}
	key := fmt.Sprintf("schedules:q:min-duration:%d", minutes)
	return s.cached(ctx, "min_duration", key, func(ctx context.Context) ([]models.Schedule, error) {
		return s.repo.FindByMinimumDuration(ctx, minutes)
	})
}

func (s *QueryService) cached(ctx context.Context, operation, key string, load func(context.Context) ([]models.Schedule, error)) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if hit, err := s.cache.Get(ctx, key, &schedules); err == nil && hit {
		return schedules, nil
	}

	start := time.Now()
	schedules, err := load(ctx)
	s.metrics.ObserveQuery(operation, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("schedule query %s failed", operation))
	}
	if schedules == nil {
		schedules = []models.Schedule{}
	}
	if err := s.cache.Set(ctx, key, schedules); err != nil {
		s.logger.Debug("query result not cached", zap.String("key", key), zap.Error(err))
	}
	return schedules, nil
}

func parseDay(day string) (models.DayOfWeek, error) {
	parsed := models.DayOfWeek(strings.ToUpper(day))
	if !parsed.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", day))
	}
	return parsed, nil
}

func parseDayTime(day, at string) (models.DayOfWeek, models.MinuteOfDay, error) {
	parsed, err := parseDay(day)
	if err != nil {
		return "", 0, err
	}
	t, err := models.ParseClock(at)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time")
	}
	return parsed, t, nil
}

func parseRange(day, start, end string) (models.DayOfWeek, models.MinuteOfDay, models.MinuteOfDay, error) {
	parsed, rangeStart, err := parseDayTime(day, start)
	if err != nil {
		return "", 0, 0, err
	}
	rangeEnd, err := models.ParseClock(end)
	if err != nil {
		return "", 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if rangeStart > rangeEnd {
		return "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "range start must not be after range end")
	}
	return parsed, rangeStart, rangeEnd, nil
}
