// Command transcribe prints the transcription of an audio file as JSON.
//
//	transcribe <audio_file> [model_size]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/logger"
	"github.com/yoockh/callsplit/internal/providers/stt"
)

type errorOutput struct {
	Error string `json:"error"`
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		emit(os.Stdout, errorOutput{Error: "Usage: transcribe <audio_file> [model_size]"})
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.NewCLI()

	model := cfg.WhisperModel
	if flag.NArg() > 1 {
		model = flag.Arg(1)
	}

	ctx := context.Background()
	t, err := stt.FromConfig(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("transcriber init failed")
		emit(os.Stdout, errorOutput{Error: err.Error()})
		os.Exit(1)
	}

	os.Exit(run(ctx, t, flag.Arg(0), stt.Options{Model: model, Language: cfg.WhisperLanguage}, os.Stdout))
}

func run(ctx context.Context, t stt.Transcriber, audioPath string, opts stt.Options, w io.Writer) int {
	opts.Model = stt.NormalizeModel(opts.Model)

	res, err := t.Transcribe(ctx, audioPath, opts)
	if err != nil {
		emit(w, errorOutput{Error: err.Error()})
		return 1
	}
	emit(w, res)
	return 0
}

func emit(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
