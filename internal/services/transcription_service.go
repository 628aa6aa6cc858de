package services

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/stt"
	"github.com/yoockh/callsplit/internal/utils"
)

type TranscriptionService interface {
	Transcribe(ctx context.Context, audioPath string, opts stt.Options) (*models.Transcription, error)
}

type transcriptionService struct {
	t        stt.Transcriber
	defaults stt.Options
	log      *logrus.Logger
}

// NewTranscriptionService fills empty per-call options from defaults
// (WHISPER_MODEL / WHISPER_LANGUAGE).
func NewTranscriptionService(t stt.Transcriber, defaults stt.Options, log *logrus.Logger) TranscriptionService {
	return &transcriptionService{t: t, defaults: defaults, log: log}
}

func (s *transcriptionService) Transcribe(ctx context.Context, audioPath string, opts stt.Options) (*models.Transcription, error) {
	const op = "TranscriptionService.Transcribe"

	if audioPath == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio_path is required", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "audio file not found: "+audioPath, err)
	}
	if opts.Model == "" {
		opts.Model = s.defaults.Model
	}
	if opts.Language == "" {
		opts.Language = s.defaults.Language
	}

	start := time.Now()
	out, err := s.t.Transcribe(ctx, audioPath, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, utils.E(utils.CodeTimeout, op, "transcription timed out", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "transcription failed", err)
	}

	s.log.WithFields(logrus.Fields{
		"audio_path":  audioPath,
		"provider":    s.t.Name(),
		"model":       stt.NormalizeModel(opts.Model),
		"language":    out.Language,
		"chars":       len(out.Text),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("transcription done")
	return &out, nil
}
