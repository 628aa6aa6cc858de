package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/gcpspeech"
	"github.com/yoockh/callsplit/internal/utils"
)

type GoogleSpeech struct {
	c          *speech.Client
	maxRetries int

	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c, maxRetries: 4, SampleRateHz: 16000}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Name() string { return "gcp" }

// Transcribe expects normalised mono 16 kHz audio; see media.Normalize.
// Recognition runs as a long-running operation so calls over a minute work.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audioPath string, opts Options) (models.Transcription, error) {
	if err := requireAudio(audioPath); err != nil {
		return models.Transcription{}, err
	}
	opts = opts.withDefaults()

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return models.Transcription{}, err
	}

	cfg := &speechpb.RecognitionConfig{
		Encoding:                   gcpspeech.EncodingFor(audioPath),
		LanguageCode:               utils.LanguageCode(opts.Language),
		EnableAutomaticPunctuation: true,
	}
	if cfg.Encoding == speechpb.RecognitionConfig_LINEAR16 {
		cfg.SampleRateHertz = g.SampleRateHz
	}
	req := &speechpb.LongRunningRecognizeRequest{
		Config: cfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}

	resp, err := gcpspeech.WithRetry(ctx, g.maxRetries, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := g.c.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return models.Transcription{}, fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	return transcriptionFromResponse(resp, opts.Language), nil
}

// transcriptionFromResponse keeps the most confident alternative of each
// result. A result spans from the previous result's end to its own end.
// Unreported confidence (0) averages to 1.0.
func transcriptionFromResponse(resp *speechpb.LongRunningRecognizeResponse, language string) models.Transcription {
	var parts []string
	var segs []models.TranscriptionSegment
	var confSum, prevEnd float64
	var n int
	for _, r := range resp.GetResults() {
		end := prevEnd
		if r.GetResultEndTime() != nil {
			end = r.GetResultEndTime().AsDuration().Seconds()
		}
		start := prevEnd
		prevEnd = end

		var best *speechpb.SpeechRecognitionAlternative
		for _, alt := range r.GetAlternatives() {
			if strings.TrimSpace(alt.GetTranscript()) == "" {
				continue
			}
			if best == nil || alt.GetConfidence() > best.GetConfidence() {
				best = alt
			}
		}
		if best == nil {
			continue
		}
		text := strings.TrimSpace(best.GetTranscript())
		parts = append(parts, text)
		segs = append(segs, models.TranscriptionSegment{Start: start, End: end, Text: text})
		confSum += float64(best.GetConfidence())
		n++
	}
	conf := 1.0
	if n > 0 && confSum > 0 {
		conf = confSum / float64(n)
	}
	return models.Transcription{
		Text:                strings.Join(parts, " "),
		Language:            language,
		LanguageProbability: conf,
		Segments:            segs,
	}
}
