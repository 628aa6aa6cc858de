package services

import (
	"context"
	"testing"
	"time"

	"github.com/yoockh/callsplit/internal/models"
)

func ptr[T any](v T) *T { return &v }

func logRow(status models.DiarizationStatus, at time.Time) models.DiarizationLog {
	return models.DiarizationLog{Status: status, CreatedAt: at}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d1 := now.Add(-48 * time.Hour)
	d2 := now.Add(-1 * time.Hour)

	rows := []models.DiarizationLog{
		{Status: models.DiarizationSuccess, CreatedAt: d1, DurationMS: ptr(int64(1000)), SpeakersDetected: ptr(2)},
		{Status: models.DiarizationSuccess, CreatedAt: d2, DurationMS: ptr(int64(2000)), SpeakersDetected: ptr(1), SingleSpeakerMode: true},
		{Status: models.DiarizationFailed, CreatedAt: d2, DurationMS: ptr(int64(300)), ErrorMessage: "oom", ErrorCode: "diarization_error"},
		{Status: models.DiarizationTimeout, CreatedAt: d2, ErrorMessage: "timeout", ErrorCode: "timeout"},
		{Status: models.DiarizationFailed, CreatedAt: d2, ErrorMessage: "oom", ErrorCode: "diarization_error"},
		{Status: models.DiarizationFallback, CreatedAt: d1},
	}

	st := ComputeStats(rows, 7, now)

	if st.Totals != (StatsTotals{Total: 6, Success: 2, Failed: 2, Timeout: 1, Fallback: 1}) {
		t.Fatalf("totals: %+v", st.Totals)
	}
	if st.Rates.SuccessRate != 33.3 || st.Rates.FailureRate != 66.7 || st.Rates.SingleSpeakerRate != 16.7 {
		t.Fatalf("rates: %+v", st.Rates)
	}
	if st.Performance.AvgDurationMS != 1100 || st.Performance.AvgSuccessDurationMS != 1500 || st.Performance.AvgSpeakersDetected != 1.5 {
		t.Fatalf("performance: %+v", st.Performance)
	}
	if len(st.Daily) != 2 || st.Daily[0].Date != "2026-03-08" || st.Daily[1].FailureCount != 3 {
		t.Fatalf("daily: %+v", st.Daily)
	}
	if len(st.TopErrors) != 2 || st.TopErrors[0].ErrorMessage != "oom" || st.TopErrors[0].Count != 2 {
		t.Fatalf("top errors: %+v", st.TopErrors)
	}
	if st.Period.Start != "2026-03-03" || st.Period.End != "2026-03-10" || st.Period.Days != 7 {
		t.Fatalf("period: %+v", st.Period)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil, 7, time.Now())
	if st.Totals.Total != 0 || st.Rates.SuccessRate != 0 || st.Daily == nil || st.TopErrors == nil {
		t.Fatalf("empty stats: %+v", st)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	mk := func(statuses ...models.DiarizationStatus) []models.DiarizationLog {
		out := make([]models.DiarizationLog, len(statuses))
		for i, s := range statuses {
			out[i] = logRow(s, now)
		}
		return out
	}
	S, F, T, B := models.DiarizationSuccess, models.DiarizationFailed, models.DiarizationTimeout, models.DiarizationFallback

	cases := []struct {
		name   string
		day    []models.DiarizationLog
		latest []models.DiarizationLog
		want   string
	}{
		{"no activity", nil, nil, "unknown"},
		{"healthy", mk(S, S, S, S, S), mk(S, S), "healthy"},
		{"warning", mk(S, S, S, S, S, S, S, S, S, S, S, F), mk(S), "warning"},
		{"degraded", mk(S, S, S, F), mk(S), "degraded"},
		{"critical rate", mk(S, F, F), mk(S), "critical"},
		{"consecutive", mk(S, S, S, S, S, S, S, S, S, S, S, S, S, S, S, S, S, S, S, S), mk(F, T, F, S), "critical"},
		{"fallback breaks streak", mk(S, S, S, S, S), mk(F, F, B, F), "healthy"},
	}
	for _, tc := range cases {
		got := Summarize(tc.day, tc.latest, now)
		if got.Status != tc.want {
			t.Fatalf("%s: want=%s got=%s (%+v)", tc.name, tc.want, got.Status, got)
		}
	}

	got := Summarize(mk(S), mk(F, T, F, F, F, F), now)
	if got.ConsecutiveFailures != 5 || got.Message != "Last 5 diarizations failed consecutively" {
		t.Fatalf("streak is capped at 5: %+v", got)
	}
	if got.Last24h.SuccessRate != 100 {
		t.Fatalf("success rate: %v", got.Last24h.SuccessRate)
	}
}

func TestLogSuccessAndFailure(t *testing.T) {
	repo := &fakeLogRepo{}
	svc := NewMonitoringService(repo, quietLogger())
	broker := "SPEAKER_00"
	res := &models.DiarizationResult{
		Success:        true,
		TotalSpeakers:  2,
		BrokerSpeaker:  &broker,
		ClientSpeakers: []string{"SPEAKER_01"},
		Stats:          models.DiarizationStats{ClientDuration: 4.5, ClientNumSegments: 2, BrokerDuration: 9, BrokerNumSegments: 3},
		UsedGPU:        true,
	}

	row, err := svc.LogSuccess(context.Background(), RunInfo{RecordingID: "rec-1", DurationMS: ptr(int64(1200))}, res, "pyannote/speaker-diarization-3.1")
	if err != nil {
		t.Fatalf("LogSuccess: %v", err)
	}
	if row.Status != models.DiarizationSuccess || *row.SpeakersDetected != 2 || *row.BrokerSpeakerID != "SPEAKER_00" || !row.UsedGPU {
		t.Fatalf("success row: %+v", row)
	}
	if len(row.RawOutput) == 0 || row.ClientSpeakers[0] != "SPEAKER_01" {
		t.Fatalf("raw output / speakers not stored: %+v", row)
	}

	if _, err := svc.LogFailure(context.Background(), RunInfo{RecordingID: "rec-2"}, models.DiarizationTimeout, "timeout", "timeout"); err != nil {
		t.Fatalf("LogFailure: %v", err)
	}
	fails, err := svc.RecentFailures(context.Background(), 10)
	if err != nil || len(fails) != 1 || fails[0].RecordingID != "rec-2" {
		t.Fatalf("RecentFailures: %+v err=%v", fails, err)
	}

	stats, err := svc.Stats(context.Background(), 0)
	if err != nil || stats.Totals.Total != 2 || stats.Period.Days != 7 {
		t.Fatalf("Stats: %+v err=%v", stats, err)
	}
	sum, err := svc.HealthSummary(context.Background())
	if err != nil || sum.Status != "degraded" {
		t.Fatalf("HealthSummary: %+v err=%v", sum, err)
	}
}
