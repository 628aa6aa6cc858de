package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/pyrunner"
)

// WhisperLocal runs openai-whisper through the embedded helper.
type WhisperLocal struct {
	runner *pyrunner.Runner
}

func NewWhisperLocal(python, workDir string) *WhisperLocal {
	return &WhisperLocal{runner: pyrunner.New(python, workDir)}
}

func (w *WhisperLocal) Name() string { return "whisper" }

func (w *WhisperLocal) Transcribe(ctx context.Context, audioPath string, opts Options) (models.Transcription, error) {
	if err := requireAudio(audioPath); err != nil {
		return models.Transcription{}, err
	}
	opts = opts.withDefaults()

	raw, err := w.runner.Run(ctx, pyrunner.Whisper, "--model", opts.Model, "--language", opts.Language, audioPath)
	if err != nil {
		return models.Transcription{}, err
	}

	var out models.Transcription
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.Transcription{}, fmt.Errorf("decode whisper output: %w", err)
	}
	out.Text = strings.TrimSpace(out.Text)
	if out.Language == "" {
		out.Language = opts.Language
	}
	if out.LanguageProbability == 0 {
		out.LanguageProbability = 1.0
	}
	return out, nil
}
