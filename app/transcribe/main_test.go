package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/stt"
)

type stubTranscriber struct {
	got stt.Options
	err error
}

func (s *stubTranscriber) Name() string { return "stub" }

func (s *stubTranscriber) Transcribe(ctx context.Context, path string, opts stt.Options) (models.Transcription, error) {
	s.got = opts
	if s.err != nil {
		return models.Transcription{}, s.err
	}
	return models.Transcription{Text: "Bonjour, je souhaite un prêt.", Language: "fr", LanguageProbability: 1}, nil
}

func TestRunPrintsTranscription(t *testing.T) {
	st := &stubTranscriber{}
	var out bytes.Buffer
	if code := run(context.Background(), st, "a.wav", stt.Options{Model: "huge", Language: "fr"}, &out); code != 0 {
		t.Fatalf("exit code: want=0 got=%d", code)
	}
	if st.got.Model != "base" {
		t.Fatalf("model: want=base got=%s", st.got.Model)
	}

	var res models.Transcription
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Text != "Bonjour, je souhaite un prêt." || res.LanguageProbability != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunPrintsError(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), &stubTranscriber{err: errors.New("audio file not found: a.wav")}, "a.wav", stt.Options{}, &out)
	if code != 1 {
		t.Fatalf("exit code: want=1 got=%d", code)
	}
	var res errorOutput
	_ = json.Unmarshal(out.Bytes(), &res)
	if res.Error != "audio file not found: a.wav" {
		t.Fatalf("error: got=%q", res.Error)
	}
}
