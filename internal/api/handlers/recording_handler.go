package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/callsplit/internal/services"
	"github.com/yoockh/callsplit/internal/storage"
	"github.com/yoockh/callsplit/internal/utils"
)

type RecordingHandler struct {
	svc    services.RecordingService
	signer storage.Signer // nil when no artifact bucket is configured
}

func NewRecordingHandler(svc services.RecordingService, signer storage.Signer) *RecordingHandler {
	return &RecordingHandler{svc: svc, signer: signer}
}

type CreateRecordingRequest struct {
	AudioPath string `json:"audio_path" binding:"required"`
	Language  string `json:"language"`
	Model     string `json:"model"` // whisper size, defaults to base
}

type CreateRecordingResponse struct {
	RecordingID string `json:"recording_id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func (h *RecordingHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "RecordingHandler.Create", "invalid request body", err))
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), userID, req.AudioPath, req.Language, req.Model)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, CreateRecordingResponse{
		RecordingID: rec.RecordingID,
		Status:      string(rec.Status),
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	})
}

func (h *RecordingHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), userID, c.Param("recording_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type ArtifactsResponse struct {
	RecordingID string                   `json:"recording_id"`
	Artifacts   []storage.SignedArtifact `json:"artifacts"`
	ExpiresIn   int                      `json:"expires_in_seconds"`
}

const artifactURLTTL = 15 * time.Minute

func (h *RecordingHandler) Artifacts(c *gin.Context) {
	const op = "RecordingHandler.Artifacts"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if h.signer == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "artifact storage not configured", nil))
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), userID, c.Param("recording_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	signed, err := storage.SignAll(c.Request.Context(), h.signer, rec.Artifacts, artifactURLTTL)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to sign artifact urls", err))
		return
	}
	c.JSON(http.StatusOK, ArtifactsResponse{
		RecordingID: rec.RecordingID,
		Artifacts:   signed,
		ExpiresIn:   int(artifactURLTTL.Seconds()),
	})
}
