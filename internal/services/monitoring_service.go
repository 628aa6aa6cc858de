package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yoockh/callsplit/internal/models"
	pgrepo "github.com/yoockh/callsplit/internal/repositories/postgres"
	"github.com/yoockh/callsplit/internal/utils"
)

// RunInfo identifies one diarization run for the monitoring log.
type RunInfo struct {
	RecordingID          string
	UserID               string
	DurationMS           *int64
	AudioDurationSeconds *int64
	FileSizeBytes        *int64
}

type StatsPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

type StatsTotals struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Failed   int `json:"failed"`
	Timeout  int `json:"timeout"`
	Fallback int `json:"fallback"`
	Skipped  int `json:"skipped"`
}

type StatsRates struct {
	SuccessRate       float64 `json:"success_rate"`
	FailureRate       float64 `json:"failure_rate"`
	SingleSpeakerRate float64 `json:"single_speaker_rate"`
}

type StatsPerformance struct {
	AvgDurationMS        int64   `json:"avg_duration_ms"`
	AvgSuccessDurationMS int64   `json:"avg_success_duration_ms"`
	AvgSpeakersDetected  float64 `json:"avg_speakers_detected"`
}

type DailyStat struct {
	Date         string `json:"date"`
	Total        int    `json:"total"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
}

type ErrorCount struct {
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code"`
	Count        int    `json:"count"`
}

type DiarizationStats struct {
	Period      StatsPeriod      `json:"period"`
	Totals      StatsTotals      `json:"totals"`
	Rates       StatsRates       `json:"rates"`
	Performance StatsPerformance `json:"performance"`
	Daily       []DailyStat      `json:"daily"`
	TopErrors   []ErrorCount     `json:"top_errors"`
}

type FailureEntry struct {
	ID                   string                   `json:"id"`
	Status               models.DiarizationStatus `json:"status"`
	ErrorMessage         string                   `json:"error_message"`
	ErrorCode            string                   `json:"error_code"`
	RecordingID          string                   `json:"recording_id"`
	DurationMS           *int64                   `json:"duration_ms"`
	AudioDurationSeconds *int64                   `json:"audio_duration_seconds"`
	CreatedAt            time.Time                `json:"created_at"`
}

type Last24h struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"success_rate"`
}

type HealthSummary struct {
	Status              string    `json:"status"`
	Message             string    `json:"message"`
	Last24h             Last24h   `json:"last_24h"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CheckedAt           time.Time `json:"checked_at"`
}

type MonitoringService interface {
	LogSuccess(ctx context.Context, info RunInfo, res *models.DiarizationResult, modelVersion string) (*models.DiarizationLog, error)
	LogFailure(ctx context.Context, info RunInfo, status models.DiarizationStatus, errMsg, errCode string) (*models.DiarizationLog, error)
	Stats(ctx context.Context, days int) (*DiarizationStats, error)
	RecentFailures(ctx context.Context, limit int) ([]FailureEntry, error)
	HealthSummary(ctx context.Context) (*HealthSummary, error)
}

type monitoringService struct {
	logs pgrepo.DiarizationLogRepo
	log  *logrus.Logger
	now  func() time.Time
}

func NewMonitoringService(logs pgrepo.DiarizationLogRepo, log *logrus.Logger) MonitoringService {
	return &monitoringService{logs: logs, log: log, now: time.Now}
}

func (s *monitoringService) LogSuccess(ctx context.Context, info RunInfo, res *models.DiarizationResult, modelVersion string) (*models.DiarizationLog, error) {
	const op = "MonitoringService.LogSuccess"

	if res == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "result is required", nil)
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode raw output", err)
	}

	speakers := res.TotalSpeakers
	brokerDur := res.Stats.BrokerDuration
	clientDur := res.Stats.ClientDuration
	brokerN := res.Stats.BrokerNumSegments
	clientN := res.Stats.ClientNumSegments

	row := s.baseRow(info, models.DiarizationSuccess)
	row.SpeakersDetected = &speakers
	row.BrokerSpeakerID = res.BrokerSpeaker
	row.ClientSpeakers = res.ClientSpeakers
	row.BrokerDurationSeconds = &brokerDur
	row.ClientDurationSeconds = &clientDur
	row.BrokerSegmentsCount = &brokerN
	row.ClientSegmentsCount = &clientN
	row.SingleSpeakerMode = res.SingleSpeakerMode
	row.ModelVersion = modelVersion
	row.UsedGPU = res.UsedGPU
	row.RawOutput = datatypes.JSON(raw)

	if err := s.logs.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert diarization log", err)
	}
	return row, nil
}

func (s *monitoringService) LogFailure(ctx context.Context, info RunInfo, status models.DiarizationStatus, errMsg, errCode string) (*models.DiarizationLog, error) {
	const op = "MonitoringService.LogFailure"

	row := s.baseRow(info, status)
	row.ErrorMessage = errMsg
	row.ErrorCode = errCode

	if err := s.logs.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert diarization log", err)
	}
	if status.IsFailure() {
		s.log.WithFields(logrus.Fields{
			"log_id":       row.ID,
			"status":       status,
			"error":        errMsg,
			"recording_id": info.RecordingID,
		}).Error("diarization failed")
	}
	return row, nil
}

func (s *monitoringService) baseRow(info RunInfo, status models.DiarizationStatus) *models.DiarizationLog {
	return &models.DiarizationLog{
		RecordingID:          info.RecordingID,
		UserID:               info.UserID,
		Status:               status,
		DurationMS:           info.DurationMS,
		AudioDurationSeconds: info.AudioDurationSeconds,
		FileSizeBytes:        info.FileSizeBytes,
		ClientSpeakers:       []string{},
		CreatedAt:            s.now().UTC(),
	}
}

func (s *monitoringService) Stats(ctx context.Context, days int) (*DiarizationStats, error) {
	const op = "MonitoringService.Stats"

	if days <= 0 {
		days = 7
	}
	now := s.now().UTC()
	rows, err := s.logs.ListSince(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list diarization logs", err)
	}
	return ComputeStats(rows, days, now), nil
}

func (s *monitoringService) RecentFailures(ctx context.Context, limit int) ([]FailureEntry, error) {
	const op = "MonitoringService.RecentFailures"

	rows, err := s.logs.RecentFailures(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list failures", err)
	}
	out := make([]FailureEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, FailureEntry{
			ID:                   r.ID,
			Status:               r.Status,
			ErrorMessage:         r.ErrorMessage,
			ErrorCode:            r.ErrorCode,
			RecordingID:          r.RecordingID,
			DurationMS:           r.DurationMS,
			AudioDurationSeconds: r.AudioDurationSeconds,
			CreatedAt:            r.CreatedAt,
		})
	}
	return out, nil
}

func (s *monitoringService) HealthSummary(ctx context.Context) (*HealthSummary, error) {
	const op = "MonitoringService.HealthSummary"

	now := s.now().UTC()
	day, err := s.logs.ListSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list diarization logs", err)
	}
	latest, err := s.logs.Latest(ctx, time.Time{}, 5)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list latest runs", err)
	}
	return Summarize(day, latest, now), nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// ComputeStats aggregates rows that fall inside the last `days` days.
func ComputeStats(rows []models.DiarizationLog, days int, now time.Time) *DiarizationStats {
	start := now.AddDate(0, 0, -days)
	out := &DiarizationStats{
		Period:    StatsPeriod{Start: start.Format("2006-01-02"), End: now.Format("2006-01-02"), Days: days},
		Daily:     []DailyStat{},
		TopErrors: []ErrorCount{},
	}

	var durSum, successDurSum, speakersSum int64
	var durN, successDurN, speakersN, single int
	daily := map[string]*DailyStat{}
	type errKey struct{ msg, code string }
	errCounts := map[errKey]int{}
	var errOrder []errKey

	for _, r := range rows {
		out.Totals.Total++
		switch r.Status {
		case models.DiarizationSuccess:
			out.Totals.Success++
		case models.DiarizationFailed:
			out.Totals.Failed++
		case models.DiarizationTimeout:
			out.Totals.Timeout++
		case models.DiarizationFallback:
			out.Totals.Fallback++
		case models.DiarizationSkipped:
			out.Totals.Skipped++
		}
		if r.SingleSpeakerMode {
			single++
		}
		if r.DurationMS != nil {
			durSum += *r.DurationMS
			durN++
			if r.Status == models.DiarizationSuccess {
				successDurSum += *r.DurationMS
				successDurN++
			}
		}
		if r.SpeakersDetected != nil {
			speakersSum += int64(*r.SpeakersDetected)
			speakersN++
		}

		date := r.CreatedAt.UTC().Format("2006-01-02")
		d, ok := daily[date]
		if !ok {
			d = &DailyStat{Date: date}
			daily[date] = d
		}
		d.Total++
		if r.Status == models.DiarizationSuccess {
			d.SuccessCount++
		}
		if r.Status.IsFailure() {
			d.FailureCount++
			k := errKey{r.ErrorMessage, r.ErrorCode}
			if _, seen := errCounts[k]; !seen {
				errOrder = append(errOrder, k)
			}
			errCounts[k]++
		}
	}

	if out.Totals.Total > 0 {
		total := float64(out.Totals.Total)
		out.Rates.SuccessRate = round1(float64(out.Totals.Success) / total * 100)
		out.Rates.FailureRate = round1(100 - out.Rates.SuccessRate)
		out.Rates.SingleSpeakerRate = round1(float64(single) / total * 100)
	}
	if durN > 0 {
		out.Performance.AvgDurationMS = int64(math.Round(float64(durSum) / float64(durN)))
	}
	if successDurN > 0 {
		out.Performance.AvgSuccessDurationMS = int64(math.Round(float64(successDurSum) / float64(successDurN)))
	}
	if speakersN > 0 {
		out.Performance.AvgSpeakersDetected = round1(float64(speakersSum) / float64(speakersN))
	}

	for _, d := range daily {
		out.Daily = append(out.Daily, *d)
	}
	sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date < out.Daily[j].Date })

	for _, k := range errOrder {
		out.TopErrors = append(out.TopErrors, ErrorCount{ErrorMessage: k.msg, ErrorCode: k.code, Count: errCounts[k]})
	}
	sort.SliceStable(out.TopErrors, func(i, j int) bool { return out.TopErrors[i].Count > out.TopErrors[j].Count })
	if len(out.TopErrors) > 5 {
		out.TopErrors = out.TopErrors[:5]
	}
	return out
}

// Summarize grades the last 24h of runs. latest must be newest first.
func Summarize(last24h, latest []models.DiarizationLog, now time.Time) *HealthSummary {
	out := &HealthSummary{CheckedAt: now.UTC()}
	for _, r := range last24h {
		out.Last24h.Total++
		if r.Status == models.DiarizationSuccess {
			out.Last24h.Success++
		}
		if r.Status.IsFailure() {
			out.Last24h.Failures++
		}
	}

	rate := 100.0
	if out.Last24h.Total > 0 {
		rate = float64(out.Last24h.Success) / float64(out.Last24h.Total) * 100
	}
	out.Last24h.SuccessRate = round1(rate)

	switch {
	case out.Last24h.Total == 0:
		out.Status, out.Message = "unknown", "No diarization activity in the last 24 hours"
	case rate < 50:
		out.Status, out.Message = "critical", "High failure rate - immediate attention required"
	case rate < 80:
		out.Status, out.Message = "degraded", "Elevated failure rate - investigation recommended"
	case rate < 95:
		out.Status, out.Message = "warning", "Some failures detected - monitoring advised"
	default:
		out.Status, out.Message = "healthy", "Diarization system operating normally"
	}

	for i, r := range latest {
		if i >= 5 || !r.Status.IsFailure() {
			break
		}
		out.ConsecutiveFailures++
	}
	if out.ConsecutiveFailures >= 3 {
		out.Status = "critical"
		out.Message = fmt.Sprintf("Last %d diarizations failed consecutively", out.ConsecutiveFailures)
	}
	return out
}
