package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/models"
)

const DefaultLanguage = "fr"

var ValidModels = []string{"tiny", "base", "small", "medium", "large", "large-v2", "large-v3"}

type Options struct {
	Model    string
	Language string
}

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string, opts Options) (models.Transcription, error)
}

// NormalizeModel returns size when it exactly names a known whisper model,
// else "base". Matching is case-sensitive: "Medium" falls back to "base".
func NormalizeModel(size string) string {
	for _, m := range ValidModels {
		if m == size {
			return m
		}
	}
	return "base"
}

func (o Options) withDefaults() Options {
	o.Model = NormalizeModel(o.Model)
	if strings.TrimSpace(o.Language) == "" {
		o.Language = DefaultLanguage
	}
	return o
}

func requireAudio(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audio file not found: %s", path)
	}
	return nil
}

// FromConfig builds the transcriber named by TRANSCRIPTION_PROVIDER.
func FromConfig(ctx context.Context, cfg config.Config) (Transcriber, error) {
	switch strings.ToLower(cfg.TranscriptionProvider) {
	case "", "whisper":
		return NewWhisperLocal(cfg.PythonBin, cfg.WorkDir), nil
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAITranscribeModel, nil), nil
	case "gcp":
		return NewGoogleSpeech(ctx)
	case "http":
		return NewWhisperHTTP(cfg.WhisperLocalURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.TranscriptionProvider)
	}
}
