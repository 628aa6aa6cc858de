package diarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/models"
)

// Output is what a diarization backend reports for one file.
type Output struct {
	Turns  []models.Turn
	Device string
	Model  string
}

func (o *Output) UsedGPU() bool { return o != nil && o.Device == "cuda" }

type Provider interface {
	Name() string
	Diarize(ctx context.Context, audioPath string) (*Output, error)
	// IsAvailable reports whether the backend can serve requests at all.
	IsAvailable(ctx context.Context) bool
}

// FromConfig builds the provider named by DIARIZATION_PROVIDER.
func FromConfig(ctx context.Context, cfg config.Config) (Provider, error) {
	switch strings.ToLower(cfg.DiarizationProvider) {
	case "", "pyannote":
		return NewPyannote(cfg.PythonBin, cfg.WorkDir, cfg.PyannoteModel, cfg.HuggingFaceToken), nil
	case "gcp":
		return NewGoogleSpeech(ctx, cfg.WhisperLanguage)
	case "http":
		if cfg.DiarizationURL == "" {
			return nil, fmt.Errorf("DIARIZATION_URL is required for the http diarizer")
		}
		return NewHTTP(cfg.DiarizationURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown diarization provider %q", cfg.DiarizationProvider)
	}
}
