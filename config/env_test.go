package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"HUGGINGFACE_TOKEN", "PYANNOTE_MODEL", "PYTHON_BIN", "DIARIZATION_PROVIDER",
		"DIARIZATION_TIMEOUT_SECONDS", "HEALTH_CACHE_TTL_SECONDS", "WHISPER_MODEL",
		"WHISPER_LANGUAGE", "WORKERS", "PORT", "AUDIO_ROOT",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
	t.Setenv("WORK_DIR", "/srv/callsplit")

	cfg := Load()
	if cfg.AudioRoot != filepath.Join("/srv/callsplit", "audio") {
		t.Fatalf("AudioRoot: want under WORK_DIR got=%q", cfg.AudioRoot)
	}
	if cfg.PyannoteModel != DefaultPyannoteModel {
		t.Fatalf("PyannoteModel: want=%q got=%q", DefaultPyannoteModel, cfg.PyannoteModel)
	}
	if cfg.PythonBin != "python3" {
		t.Fatalf("PythonBin: want=%q got=%q", "python3", cfg.PythonBin)
	}
	if cfg.DiarizationProvider != "pyannote" {
		t.Fatalf("DiarizationProvider: want=%q got=%q", "pyannote", cfg.DiarizationProvider)
	}
	if cfg.DiarizationTimeout != 300*time.Second {
		t.Fatalf("DiarizationTimeout: want=%v got=%v", 300*time.Second, cfg.DiarizationTimeout)
	}
	if cfg.HealthCacheTTL != time.Hour {
		t.Fatalf("HealthCacheTTL: want=%v got=%v", time.Hour, cfg.HealthCacheTTL)
	}
	if cfg.WhisperModel != "base" || cfg.WhisperLanguage != "fr" {
		t.Fatalf("whisper defaults: got model=%q language=%q", cfg.WhisperModel, cfg.WhisperLanguage)
	}
	if cfg.Workers != 2 || cfg.Port != "8080" {
		t.Fatalf("server defaults: got workers=%d port=%q", cfg.Workers, cfg.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DIARIZATION_PROVIDER", "GCP")
	t.Setenv("DIARIZATION_TIMEOUT_SECONDS", "60")
	t.Setenv("WORKERS", "not-a-number")
	t.Setenv("HUGGINGFACE_TOKEN", "hf_token_value")
	t.Setenv("AUDIO_ROOT", "/data/calls")

	cfg := Load()
	if cfg.DiarizationProvider != "gcp" {
		t.Fatalf("DiarizationProvider: want=%q got=%q", "gcp", cfg.DiarizationProvider)
	}
	if cfg.DiarizationTimeout != time.Minute {
		t.Fatalf("DiarizationTimeout: want=%v got=%v", time.Minute, cfg.DiarizationTimeout)
	}
	if cfg.Workers != 2 {
		t.Fatalf("Workers: want=2 got=%d", cfg.Workers)
	}
	if cfg.HuggingFaceToken != "hf_token_value" {
		t.Fatalf("HuggingFaceToken not read")
	}
	if cfg.AudioRoot != "/data/calls" {
		t.Fatalf("AudioRoot: want=%q got=%q", "/data/calls", cfg.AudioRoot)
	}
}
