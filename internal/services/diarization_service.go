package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/callsplit/internal/diarization"
	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/diarizer"
)

const (
	ErrCodeUnavailable = "provider_unavailable"
	ErrCodeNotFound    = "file_not_found"
	ErrCodeTimeout     = "timeout"
	ErrCodeFailed      = "diarization_error"
)

// DiarizationService never returns a Go error for a failed run: failures are
// reported inside the result so callers can fall back to full transcription.
type DiarizationService interface {
	Diarize(ctx context.Context, audioPath string) *models.DiarizationResult
	DiarizeWithMonitoring(ctx context.Context, audioPath string, info RunInfo) *models.DiarizationResult
	IsAvailable(ctx context.Context) bool
}

type diarizationService struct {
	provider diarizer.Provider
	monitor  MonitoringService
	timeout  time.Duration
	log      *logrus.Logger
}

// NewDiarizationService accepts a nil monitor; runs are then not logged.
func NewDiarizationService(p diarizer.Provider, monitor MonitoringService, timeout time.Duration, log *logrus.Logger) DiarizationService {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &diarizationService{provider: p, monitor: monitor, timeout: timeout, log: log}
}

type diarizeOutcome struct {
	result *models.DiarizationResult
	status models.DiarizationStatus
	code   string
	model  string
}

func failed(status models.DiarizationStatus, code, msg string) diarizeOutcome {
	return diarizeOutcome{
		result: &models.DiarizationResult{Success: false, Error: msg, ClientSegments: []models.Segment{}, ClientSpeakers: []string{}},
		status: status,
		code:   code,
	}
}

func (s *diarizationService) IsAvailable(ctx context.Context) bool {
	return s.provider.IsAvailable(ctx)
}

func (s *diarizationService) Diarize(ctx context.Context, audioPath string) *models.DiarizationResult {
	return s.diarize(ctx, audioPath).result
}

func (s *diarizationService) diarize(ctx context.Context, audioPath string) diarizeOutcome {
	l := s.log.WithFields(logrus.Fields{"audio_path": audioPath, "provider": s.provider.Name()})

	if !s.provider.IsAvailable(ctx) {
		l.Info("diarization provider unavailable, falling back to full transcription")
		o := failed(models.DiarizationFallback, ErrCodeUnavailable, "diarization provider unavailable")
		o.result.Fallback = true
		return o
	}

	fi, err := os.Stat(audioPath)
	if err != nil {
		l.Error("audio file not found")
		return failed(models.DiarizationFailed, ErrCodeNotFound, "audio file not found: "+audioPath)
	}
	l.WithField("file_size", fi.Size()).Info("diarization started")

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.provider.Diarize(rctx, audioPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
			l.WithField("timeout_s", int(s.timeout.Seconds())).Error("diarization timed out")
			return failed(models.DiarizationTimeout, ErrCodeTimeout, fmt.Sprintf("diarization timeout exceeded (%ds)", int(s.timeout.Seconds())))
		}
		l.WithError(err).Error("diarization failed")
		return failed(models.DiarizationFailed, ErrCodeFailed, err.Error())
	}

	res, _ := diarization.BuildResult(out.Turns)
	res.UsedGPU = out.UsedGPU()
	l.WithFields(logrus.Fields{
		"total_speakers":    res.TotalSpeakers,
		"client_segments":   len(res.ClientSegments),
		"client_duration":   res.Stats.ClientDuration,
		"courtier_duration": res.Stats.BrokerDuration,
	}).Info("diarization succeeded")
	return diarizeOutcome{result: res, status: models.DiarizationSuccess, model: out.Model}
}

func (s *diarizationService) DiarizeWithMonitoring(ctx context.Context, audioPath string, info RunInfo) *models.DiarizationResult {
	start := time.Now()
	if info.FileSizeBytes == nil {
		if fi, err := os.Stat(audioPath); err == nil {
			size := fi.Size()
			info.FileSizeBytes = &size
		}
	}

	o := s.diarize(ctx, audioPath)
	ms := time.Since(start).Milliseconds()
	info.DurationMS = &ms

	if s.monitor == nil {
		return o.result
	}

	var err error
	if o.status == models.DiarizationSuccess {
		model := o.model
		if model == "" {
			model = s.provider.Name()
		}
		_, err = s.monitor.LogSuccess(ctx, info, o.result, model)
	} else {
		_, err = s.monitor.LogFailure(ctx, info, o.status, o.result.Error, o.code)
	}
	if err != nil {
		s.log.WithError(err).WithField("recording_id", info.RecordingID).Warn("failed to record diarization run")
	}
	return o.result
}
