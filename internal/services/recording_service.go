package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/stt"
	mongorepo "github.com/yoockh/callsplit/internal/repositories/mongo"
	"github.com/yoockh/callsplit/internal/utils"
)

// Queue hands a recording to the processing pipeline.
type Queue interface {
	Enqueue(ctx context.Context, rec *models.Recording) error
}

type RecordingService interface {
	Create(ctx context.Context, userID, audioPath, language, model string) (*models.Recording, error)
	Get(ctx context.Context, userID, recordingID string) (*models.Recording, error)
	MarkProcessing(ctx context.Context, recordingID string) (*models.Recording, error)
	Complete(ctx context.Context, recordingID string, res mongorepo.RecordingResults) error
	Fail(ctx context.Context, recordingID, reason string) error
}

type recordingService struct {
	recordings mongorepo.RecordingRepository
	queue      Queue
	audioRoot  string
	language   string
}

// NewRecordingService only accepts audio paths below audioRoot.
func NewRecordingService(recordings mongorepo.RecordingRepository, queue Queue, audioRoot, defaultLanguage string) RecordingService {
	if defaultLanguage == "" {
		defaultLanguage = stt.DefaultLanguage
	}
	return &recordingService{recordings: recordings, queue: queue, audioRoot: audioRoot, language: defaultLanguage}
}

var transitions = map[models.RecordingStatus][]models.RecordingStatus{
	models.RecordingQueued:     {models.RecordingProcessing, models.RecordingFailed},
	models.RecordingProcessing: {models.RecordingDone, models.RecordingFailed},
}

func canTransition(from, to models.RecordingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *recordingService) Create(ctx context.Context, userID, audioPath, language, model string) (*models.Recording, error) {
	const op = "RecordingService.Create"

	audioPath = strings.TrimSpace(audioPath)
	if userID == "" || audioPath == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and audio_path are required", nil)
	}
	audioPath, err := s.resolveAudio(audioPath)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio_path must be inside the audio root", err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio file not found: "+audioPath, err)
	}
	if language == "" {
		language = s.language
	}

	rec := &models.Recording{
		RecordingID: uuid.NewString(),
		UserID:      userID,
		AudioPath:   audioPath,
		Language:    language,
		Model:       stt.NormalizeModel(model),
		Status:      models.RecordingQueued,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.recordings.Create(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create recording", err)
	}
	if err := s.queue.Enqueue(ctx, rec); err != nil {
		_ = s.recordings.SetStatus(ctx, rec.RecordingID, models.RecordingFailed, "enqueue failed")
		return nil, utils.E(utils.CodeUnavailable, op, "failed to enqueue recording", err)
	}
	return rec, nil
}

// resolveAudio checks containment lexically first, so paths outside the root
// are rejected the same way whether or not they exist. A symlink below the
// root that points outside it is rejected once resolved.
func (s *recordingService) resolveAudio(audioPath string) (string, error) {
	abs, err := utils.Within(s.audioRoot, audioPath)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abs, nil
		}
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(s.audioRoot)
	if err != nil {
		return "", err
	}
	if _, err := utils.Within(realRoot, resolved); err != nil {
		return "", err
	}
	return abs, nil
}

func (s *recordingService) Get(ctx context.Context, userID, recordingID string) (*models.Recording, error) {
	const op = "RecordingService.Get"

	if recordingID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording_id is required", nil)
	}
	rec, err := s.load(ctx, op, recordingID)
	if err != nil {
		return nil, err
	}
	if userID != "" && rec.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "recording belongs to another user", nil)
	}
	return rec, nil
}

func (s *recordingService) load(ctx context.Context, op, recordingID string) (*models.Recording, error) {
	rec, err := s.recordings.GetByRecordingID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "recording not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get recording", err)
	}
	return rec, nil
}

func (s *recordingService) transition(ctx context.Context, op, recordingID string, to models.RecordingStatus, reason string) (*models.Recording, error) {
	rec, err := s.load(ctx, op, recordingID)
	if err != nil {
		return nil, err
	}
	if !canTransition(rec.Status, to) {
		return nil, utils.E(utils.CodeConflict, op, fmt.Sprintf("cannot move recording from %s to %s", rec.Status, to), nil)
	}
	if err := s.recordings.SetStatus(ctx, recordingID, to, reason); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to set status", err)
	}
	rec.Status = to
	rec.Error = reason
	return rec, nil
}

func (s *recordingService) MarkProcessing(ctx context.Context, recordingID string) (*models.Recording, error) {
	return s.transition(ctx, "RecordingService.MarkProcessing", recordingID, models.RecordingProcessing, "")
}

func (s *recordingService) Complete(ctx context.Context, recordingID string, res mongorepo.RecordingResults) error {
	const op = "RecordingService.Complete"

	if err := s.recordings.SaveResults(ctx, recordingID, res); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save results", err)
	}
	_, err := s.transition(ctx, op, recordingID, models.RecordingDone, "")
	return err
}

func (s *recordingService) Fail(ctx context.Context, recordingID, reason string) error {
	_, err := s.transition(ctx, "RecordingService.Fail", recordingID, models.RecordingFailed, reason)
	return err
}
