// Package media wraps the ffmpeg and ffprobe binaries.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/utils"
)

var ErrOutsideWorkDir = errors.New("path is outside the work dir")

type FFmpeg struct {
	Bin      string
	ProbeBin string
	WorkDir  string
	Timeout  time.Duration
}

func New(bin, probeBin, workDir string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if probeBin == "" {
		probeBin = "ffprobe"
	}
	return &FFmpeg{Bin: bin, ProbeBin: probeBin, WorkDir: workDir, Timeout: 10 * time.Minute}
}

// ClientFilter builds the filter graph that cuts every segment out of the
// input and concatenates them into [out].
func ClientFilter(segments []models.Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "[0:a]atrim=start=%s:duration=%s,asetpts=PTS-STARTPTS[a%d];",
			formatSeconds(s.Start), formatSeconds(s.Duration), i)
	}
	for i := range segments {
		fmt.Fprintf(&b, "[a%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=0:a=1[out]", len(segments))
	return b.String()
}

func formatSeconds(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

// ExtractClientAudio writes the concatenated client segments to a new WAV in
// outDir. With no segments it returns "" and writes nothing.
func (f *FFmpeg) ExtractClientAudio(ctx context.Context, audioPath string, segments []models.Segment, outDir string) (string, error) {
	if len(segments) == 0 {
		return "", nil
	}
	if outDir == "" {
		outDir = f.WorkDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir out dir: %w", err)
	}
	out := filepath.Join(outDir, "client_"+uuid.NewString()+".wav")

	_, err := f.run(ctx, f.Bin,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", audioPath,
		"-filter_complex", ClientFilter(segments),
		"-map", "[out]",
		"-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
		out,
	)
	if err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("extract client audio: %w", err)
	}
	return out, nil
}

// Normalize converts any input to mono 16 kHz PCM WAV.
func (f *FFmpeg) Normalize(ctx context.Context, in, outDir string) (string, error) {
	if outDir == "" {
		outDir = f.WorkDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir out dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(outDir, base+"_"+uuid.NewString()[:8]+".wav")

	if _, err := f.run(ctx, f.Bin, "-y", "-hide_banner", "-loglevel", "error",
		"-i", in, "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", out); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// Probe returns the container duration in seconds.
func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	out, err := f.run(ctx, f.ProbeBin, "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// Version returns the first line of `ffmpeg -version`.
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	out, err := f.run(ctx, f.Bin, "-version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// Cleanup removes path only when it lives under the work dir.
func (f *FFmpeg) Cleanup(path string) error {
	if path == "" {
		return nil
	}
	abs, err := utils.Within(f.WorkDir, path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrOutsideWorkDir)
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FFmpeg) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w; out=%s", filepath.Base(bin), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
