package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yoockh/callsplit/internal/pyrunner"
)

// SystemReport is what pyannote-init prints before doing any work.
type SystemReport struct {
	PythonVersion  string
	FFmpegVersion  string
	FFmpegError    string
	TorchInstalled bool
	TorchVersion   string
	CUDAAvailable  bool
	PyannoteReady  bool
	TokenLength    int
}

// TokenUsable mirrors the init check: a real HF token is longer than 10 chars.
func (s SystemReport) TokenUsable() bool { return s.TokenLength > 10 }

type versioner interface {
	Version(ctx context.Context) (string, error)
}

func (c *Checker) System(ctx context.Context, ffmpeg versioner) SystemReport {
	rep := SystemReport{TokenLength: len(c.token)}

	if ffmpeg != nil {
		if v, err := ffmpeg.Version(ctx); err != nil {
			rep.FFmpegError = err.Error()
		} else {
			rep.FFmpegVersion = v
		}
	}
	if v, err := c.runner.Version(ctx); err == nil {
		rep.PythonVersion = v
	}

	raw, err := c.runner.Run(ctx, pyrunner.Pyannote, "--probe")
	if err != nil {
		return rep
	}
	var probe probeOutput
	if json.Unmarshal(raw, &probe) != nil {
		return rep
	}
	if probe.PythonVersion != "" {
		rep.PythonVersion = probe.PythonVersion
	}
	rep.TorchInstalled = probe.Torch.Installed
	rep.TorchVersion = probe.Torch.Version
	rep.CUDAAvailable = probe.Torch.CUDAAvailable
	rep.PyannoteReady = probe.Pyannote.Installed
	return rep
}

// PyannoteInstalled imports pyannote.audio in a fresh interpreter.
func (c *Checker) PyannoteInstalled(ctx context.Context) bool {
	ok, _ := c.runner.Import(ctx, "pyannote.audio")
	return ok
}

// Install pip-installs pyannote.audio, giving up after ten minutes.
func (c *Checker) Install(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	return c.runner.PipInstall(ctx, "pyannote.audio")
}

var ErrNoToken = errors.New("HUGGINGFACE_TOKEN not set - cannot download the model")

type warmupOutput struct {
	Ready  bool   `json:"ready"`
	Device string `json:"device"`
}

// Warmup loads the pipeline once so its weights land in the HF cache.
func (c *Checker) Warmup(ctx context.Context) (string, error) {
	if c.token == "" {
		return "", ErrNoToken
	}
	raw, err := c.runner.Run(ctx, pyrunner.Pyannote, "--warmup", "--model", c.model)
	if err != nil {
		return "", err
	}
	var out warmupOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode warmup output: %w", err)
	}
	if !out.Ready {
		return "", errors.New("pipeline did not report ready")
	}
	return out.Device, nil
}
