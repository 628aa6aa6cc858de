package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/callsplit/internal/cache"
	"github.com/yoockh/callsplit/internal/models"
)

const CacheKey = "pyannote_health_status"

type Runner interface {
	Run(ctx context.Context) (*models.HealthReport, error)
}

// Service caches health reports so callers on the request path do not spawn
// Python every time.
type Service struct {
	checker Runner
	cache   cache.Cache
	ttl     time.Duration
	timeout time.Duration
	log     *logrus.Logger
	now     func() time.Time
}

func NewService(checker Runner, c cache.Cache, ttl, timeout time.Duration, log *logrus.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.New()
	}
	return &Service{checker: checker, cache: c, ttl: ttl, timeout: timeout, log: log, now: time.Now}
}

// Check returns the cached report unless force is set or nothing is cached.
func (s *Service) Check(ctx context.Context, force bool) *models.HealthReport {
	if !force && s.cache != nil {
		var cached models.HealthReport
		hit, err := s.cache.GetJSON(ctx, CacheKey, &cached)
		if err != nil {
			s.log.WithError(err).Warn("health cache read failed")
		}
		if hit {
			return &cached
		}
	}

	s.log.Info("checking pyannote availability")
	report := s.run(ctx)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, CacheKey, report, s.ttl); err != nil {
			s.log.WithError(err).Warn("health cache write failed")
		}
	}

	if report.Available {
		statuses := map[string]models.CheckStatus{}
		for name, c := range report.Checks.All() {
			statuses[name] = c.Status
		}
		s.log.WithField("checks", statuses).Info("pyannote available")
	} else {
		s.log.WithFields(logrus.Fields{
			"errors":   report.Errors,
			"warnings": report.Warnings,
		}).Warn("pyannote unavailable")
	}
	return report
}

// Refresh drops the cached report and runs a new check.
func (s *Service) Refresh(ctx context.Context) *models.HealthReport {
	if s.cache != nil {
		if err := s.cache.Del(ctx, CacheKey); err != nil {
			s.log.WithError(err).Warn("health cache delete failed")
		}
	}
	return s.Check(ctx, true)
}

func (s *Service) IsAvailable(ctx context.Context) bool {
	return s.Check(ctx, false).Available
}

func (s *Service) run(ctx context.Context) *models.HealthReport {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.checker.Run(rctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.UnavailableReport(s.now(), fmt.Sprintf("Health check timeout (%ds)", int(s.timeout.Seconds())))
	case err != nil:
		return models.UnavailableReport(s.now(), "Health check failed: "+err.Error())
	case report == nil:
		return models.UnavailableReport(s.now(), "Health check returned no report")
	}
	return report
}
