// Command diarize splits a call recording into broker and client speech and
// writes the result JSON.
//
//	diarize <audio_file> <output_json>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/diarization"
	"github.com/yoockh/callsplit/internal/logger"
	"github.com/yoockh/callsplit/internal/providers/diarizer"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: diarize <audio_file> <output_json>")
	}
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	audioPath, outPath := flag.Arg(0), flag.Arg(1)

	if _, err := os.Stat(audioPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: audio file not found: %s\n", audioPath)
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.NewCLI()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DiarizationTimeout)
	defer cancel()

	p, err := diarizer.FromConfig(ctx, cfg)
	if err == nil {
		err = run(ctx, p, audioPath, outPath, os.Stdout)
	}
	if err != nil {
		log.WithError(err).WithField("audio_path", audioPath).Error("diarization failed")
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		if werr := writeJSON(outPath, diarization.FailureResult(err)); werr != nil {
			log.WithError(werr).Error("cannot write failure result")
		}
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{"provider": p.Name(), "output": outPath}).Debug("done")
}

func run(ctx context.Context, p diarizer.Provider, audioPath, outPath string, w io.Writer) error {
	fmt.Fprintf(w, "Diarizing: %s\n", audioPath)

	fmt.Fprintf(w, "Loading %s model...\n", p.Name())
	fmt.Fprintln(w, "Analyzing speakers...")
	out, err := p.Diarize(ctx, audioPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("diarization timeout exceeded: %w", err)
		}
		return err
	}

	fmt.Fprintln(w, "Identifying broker/client...")
	res, a := diarization.BuildResult(out.Turns)

	fmt.Fprintln(w, "Extracting client segments...")
	switch {
	case res.TotalSpeakers == 0:
		fmt.Fprintln(w, "Warning: no speaker detected in the audio")
	case a.SingleSpeaker:
		fmt.Fprintf(w, "Warning: single speaker detected (%s) - treated as client\n", a.Speakers[0])
	}

	if a.SingleSpeaker {
		fmt.Fprintln(w, "\nResults (single speaker mode):")
		fmt.Fprintf(w, "   - Speakers detected: %d\n", res.TotalSpeakers)
		fmt.Fprintln(w, "   - Mode: whole audio treated as client")
		fmt.Fprintf(w, "   - Segments extracted: %d (%.1fs)\n", res.Stats.ClientNumSegments, res.Stats.ClientDuration)
	} else {
		fmt.Fprintln(w, "\nResults:")
		fmt.Fprintf(w, "   - Speakers detected: %d\n", res.TotalSpeakers)
		fmt.Fprintf(w, "   - Broker: %s (%d segments, %.1fs)\n", a.Broker, res.Stats.BrokerNumSegments, res.Stats.BrokerDuration)
		fmt.Fprintf(w, "   - Client(s): %s\n", strings.Join(a.Clients, ", "))
		fmt.Fprintf(w, "   - Client segments extracted: %d (%.1fs)\n", res.Stats.ClientNumSegments, res.Stats.ClientDuration)
	}

	if err := writeJSON(outPath, res); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nResults saved to: %s\n", outPath)
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
