package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/services"
	"github.com/yoockh/callsplit/internal/utils"
)

// HealthChecker is satisfied by *health.Service.
type HealthChecker interface {
	Check(ctx context.Context, force bool) *models.HealthReport
	Refresh(ctx context.Context) *models.HealthReport
}

type HealthHandler struct {
	health  HealthChecker
	monitor services.MonitoringService
	now     func() time.Time
}

func NewHealthHandler(health HealthChecker, monitor services.MonitoringService) *HealthHandler {
	return &HealthHandler{health: health, monitor: monitor, now: time.Now}
}

type AudioHealthResponse struct {
	Status     string                          `json:"status"`
	Timestamp  string                          `json:"timestamp"`
	Components map[string]*models.HealthReport `json:"components"`
	Features   AudioFeatures                   `json:"features"`
	Message    string                          `json:"message"`
}

type AudioFeatures struct {
	Transcription     bool `json:"transcription"`
	Diarization       bool `json:"diarization"`
	SpeakerSeparation bool `json:"speaker_separation"`
}

func (h *HealthHandler) Audio(c *gin.Context) {
	report := h.health.Check(c.Request.Context(), false)

	resp := AudioHealthResponse{
		Status:     "healthy",
		Timestamp:  h.now().UTC().Format(time.RFC3339),
		Components: map[string]*models.HealthReport{"pyannote": report},
		Features: AudioFeatures{
			Transcription:     true,
			Diarization:       report.Available,
			SpeakerSeparation: report.Available,
		},
		Message: "All audio features available",
	}
	if !report.Available {
		resp.Status = "degraded"
		resp.Message = "Diarization unavailable - transcription will process full audio without speaker separation"
	}
	c.JSON(http.StatusOK, resp)
}

type PyannoteHealthResponse struct {
	Available bool                 `json:"available"`
	Cached    bool                 `json:"cached"`
	Details   *models.HealthReport `json:"details"`
}

func (h *HealthHandler) Pyannote(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	var report *models.HealthReport
	if refresh {
		report = h.health.Refresh(c.Request.Context())
	} else {
		report = h.health.Check(c.Request.Context(), false)
	}

	c.JSON(http.StatusOK, PyannoteHealthResponse{
		Available: report.Available,
		Cached:    !refresh,
		Details:   report,
	})
}

type DiarizationStatsResponse struct {
	PeriodDays     int                        `json:"period_days"`
	Stats          *services.DiarizationStats `json:"stats"`
	RecentFailures []services.FailureEntry    `json:"recent_failures"`
	HealthSummary  *services.HealthSummary    `json:"health_summary"`
}

func (h *HealthHandler) DiarizationStats(c *gin.Context) {
	const op = "HealthHandler.DiarizationStats"

	days := 7
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "days must be between 1 and 365", err))
			return
		}
		days = n
	}

	ctx := c.Request.Context()
	stats, err := h.monitor.Stats(ctx, days)
	if err != nil {
		writeError(c, err)
		return
	}
	failures, err := h.monitor.RecentFailures(ctx, 10)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := h.monitor.HealthSummary(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, DiarizationStatsResponse{
		PeriodDays:     days,
		Stats:          stats,
		RecentFailures: failures,
		HealthSummary:  summary,
	})
}
