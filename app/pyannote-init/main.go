// Command pyannote-init prepares a host for diarization: it reports the
// system state, installs pyannote.audio when missing and warms the model
// cache.
//
//	pyannote-init [--install] [--download-model]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/health"
	"github.com/yoockh/callsplit/internal/logger"
	"github.com/yoockh/callsplit/internal/media"
)

func main() {
	install := flag.Bool("install", false, "install pyannote.audio if it is missing")
	download := flag.Bool("download-model", false, "load the diarization pipeline once to cache its weights")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewCLI()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	checker := health.NewChecker(cfg)
	ff := media.New(cfg.FFmpegBin, cfg.FFprobeBin, cfg.WorkDir)

	fmt.Println("Initializing pyannote for audio diarization")
	fmt.Println()
	printSystem(os.Stdout, checker.System(ctx, ff))

	installed := checker.PyannoteInstalled(ctx)
	if installed {
		fmt.Println("pyannote.audio is installed")
	} else {
		fmt.Println("pyannote.audio is NOT installed")
	}

	if *install || !installed {
		if !installed {
			fmt.Println("Installing pyannote.audio...")
			if out, err := checker.Install(ctx); err != nil {
				log.WithError(err).Error("install failed")
				if errors.Is(err, context.DeadlineExceeded) {
					fmt.Println("Timeout during installation")
				} else {
					fmt.Printf("Installation failed: %s\n", out)
				}
				fmt.Println("\npyannote installation failed")
				os.Exit(1)
			}
			fmt.Println("pyannote.audio installed")
			installed = true
		}
	}

	if *download || flag.NFlag() == 0 {
		if installed {
			warmup(ctx, checker, cfg.PyannoteModel)
		}
	}

	fmt.Println("\nInitialization complete")
}

func warmup(ctx context.Context, checker *health.Checker, model string) {
	fmt.Println("Downloading the diarization model...")
	fmt.Println("   (this can take several minutes the first time)")

	device, err := checker.Warmup(ctx)
	switch {
	case errors.Is(err, health.ErrNoToken):
		fmt.Println("HUGGINGFACE_TOKEN not set - cannot download the model")
		fmt.Println("   Set the environment variable and run this command again")
	case err != nil:
		fmt.Printf("Model download failed: %v\n", err)
		fmt.Println("\nMake sure that:")
		fmt.Printf("   1. The license is accepted on https://huggingface.co/%s\n", model)
		fmt.Println("   2. The HuggingFace token is valid")
	default:
		fmt.Printf("Diarization model downloaded and ready (device: %s)\n", device)
	}
}

func printSystem(w io.Writer, s health.SystemReport) {
	fmt.Fprintln(w, "=== System check ===")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Python: %s\n", orDash(s.PythonVersion))

	if s.FFmpegError != "" {
		fmt.Fprintln(w, "FFmpeg: not available")
	} else {
		fmt.Fprintf(w, "FFmpeg: %s\n", s.FFmpegVersion)
	}

	if s.TorchInstalled {
		fmt.Fprintf(w, "PyTorch: %s\n", s.TorchVersion)
		if s.CUDAAvailable {
			fmt.Fprintln(w, "CUDA available: yes")
		} else {
			fmt.Fprintln(w, "CUDA available: no (CPU only)")
		}
	} else {
		fmt.Fprintln(w, "PyTorch: not installed")
	}

	if s.TokenUsable() {
		fmt.Fprintf(w, "HUGGINGFACE_TOKEN: set (%d characters)\n", s.TokenLength)
	} else {
		fmt.Fprintln(w, "HUGGINGFACE_TOKEN: not set or invalid")
	}
	fmt.Fprintln(w)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
