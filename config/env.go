package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultPyannoteModel = "pyannote/speaker-diarization-3.1"

type Config struct {
	HuggingFaceToken string
	PyannoteModel    string
	PythonBin        string
	FFmpegBin        string
	FFprobeBin       string
	WorkDir          string
	AudioRoot        string

	DiarizationProvider string
	DiarizationURL      string
	DiarizationTimeout  time.Duration

	HealthTimeout  time.Duration
	HealthCacheTTL time.Duration

	TranscriptionProvider string
	WhisperModel          string
	WhisperLanguage       string
	WhisperLocalURL       string
	OpenAIAPIKey          string
	OpenAITranscribeModel string

	GCPProjectID string
	GCPLocation  string
	VertexModel  string
	GCSBucket    string

	MongoDB string
	Port    string
	Workers int
}

// Load reads .env when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	workDir := env("WORK_DIR", filepath.Join(os.TempDir(), "callsplit"))

	return Config{
		HuggingFaceToken: env("HUGGINGFACE_TOKEN", ""),
		PyannoteModel:    env("PYANNOTE_MODEL", DefaultPyannoteModel),
		PythonBin:        env("PYTHON_BIN", "python3"),
		FFmpegBin:        env("FFMPEG_BIN", "ffmpeg"),
		FFprobeBin:       env("FFPROBE_BIN", "ffprobe"),
		WorkDir:          workDir,
		AudioRoot:        env("AUDIO_ROOT", filepath.Join(workDir, "audio")),

		DiarizationProvider: strings.ToLower(env("DIARIZATION_PROVIDER", "pyannote")),
		DiarizationURL:      env("DIARIZATION_URL", ""),
		DiarizationTimeout:  seconds("DIARIZATION_TIMEOUT_SECONDS", 300),

		HealthTimeout:  seconds("HEALTH_TIMEOUT_SECONDS", 30),
		HealthCacheTTL: seconds("HEALTH_CACHE_TTL_SECONDS", 3600),

		TranscriptionProvider: strings.ToLower(env("TRANSCRIPTION_PROVIDER", "whisper")),
		WhisperModel:          env("WHISPER_MODEL", "base"),
		WhisperLanguage:       env("WHISPER_LANGUAGE", "fr"),
		WhisperLocalURL:       env("WHISPER_LOCAL_URL", "http://whisper_local:9000/transcribe"),
		OpenAIAPIKey:          env("OPENAI_API_KEY", ""),
		OpenAITranscribeModel: env("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),

		GCPProjectID: env("GCP_PROJECT_ID", ""),
		GCPLocation:  env("GCP_LOCATION", "us-central1"),
		VertexModel:  env("VERTEX_MODEL", "gemini-1.5-flash"),
		GCSBucket:    env("GCS_BUCKET", ""),

		MongoDB: env("MONGO_DB", "callsplit"),
		Port:    env("PORT", "8080"),
		Workers: intEnv("WORKERS", 2),
	}
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func seconds(key string, def int) time.Duration {
	return time.Duration(intEnv(key, def)) * time.Second
}
