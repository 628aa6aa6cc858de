package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "client.wav")
	if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return p
}

func fakePython(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fake not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p := filepath.Join(t.TempDir(), "python")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write fake python: %v", err)
	}
	return p
}

func TestNormalizeModel(t *testing.T) {
	cases := map[string]string{
		"tiny":     "tiny",
		"large-v3": "large-v3",
		"medium":   "medium",
		" Medium ": "base",
		"LARGE":    "base",
		"small ":   "base",
		"huge":     "base",
		"":         "base",
	}
	for in, want := range cases {
		if got := NormalizeModel(in); got != want {
			t.Fatalf("NormalizeModel(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestMissingAudio(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.wav")
	_, err := NewWhisperLocal("python3", t.TempDir()).Transcribe(context.Background(), missing, Options{})
	if err == nil || err.Error() != "audio file not found: "+missing {
		t.Fatalf("want not-found error, got=%v", err)
	}
}

func TestWhisperLocalPassesModelAndDefaults(t *testing.T) {
	// echoes argv so the test can see which model/language were requested
	py := fakePython(t, `printf '{"text":"  %s %s %s  ","segments":[{"start":0,"end":1,"text":"x"}]}' "$3" "$4" "$5"`)
	out, err := NewWhisperLocal(py, t.TempDir()).Transcribe(context.Background(), writeAudio(t), Options{Model: "gigantic"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out.Text != "base --language fr" {
		t.Fatalf("Text: got=%q", out.Text)
	}
	if out.Language != "fr" || out.LanguageProbability != 1.0 || len(out.Segments) != 1 {
		t.Fatalf("unexpected transcription: %+v", out)
	}
}

func TestOpenAITranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization: got=%q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "en" {
			t.Errorf("form: model=%q language=%q", r.FormValue("model"), r.FormValue("language"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" hello there ","segments":[{"start":0,"end":2,"text":" hello there"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", "", srv.Client())
	o.endpoint = srv.URL
	out, err := o.Transcribe(context.Background(), writeAudio(t), Options{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out.Text != "hello there" || out.Language != "en" || out.LanguageProbability != 1.0 {
		t.Fatalf("unexpected transcription: %+v", out)
	}
	if len(out.Segments) != 1 || out.Segments[0].Text != "hello there" {
		t.Fatalf("segments: %+v", out.Segments)
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "", nil).Transcribe(context.Background(), writeAudio(t), Options{})
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("want missing key error, got=%v", err)
	}
}

func TestOpenAIMissingAudioBeforeKey(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.wav")
	_, err := NewOpenAI("", "", nil).Transcribe(context.Background(), missing, Options{})
	if err == nil || err.Error() != "audio file not found: "+missing {
		t.Fatalf("want not-found error, got=%v", err)
	}
}

func TestWhisperHTTPPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("form file: %v", err)
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("bonjour monsieur\n"))
	}))
	defer srv.Close()

	out, err := NewWhisperHTTP(srv.URL+"/transcribe", srv.Client()).Transcribe(context.Background(), writeAudio(t), Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out.Text != "bonjour monsieur" || out.Language != "fr" || out.LanguageProbability != 1.0 {
		t.Fatalf("unexpected transcription: %+v", out)
	}
}

func TestWhisperHTTPJSONAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"oui","language":"fr","segments":[{"start":0.2,"end":0.6,"text":"oui"}]}`))
	}))
	defer srv.Close()

	out, err := NewWhisperHTTP(srv.URL+"/transcribe", srv.Client()).Transcribe(context.Background(), writeAudio(t), Options{})
	if err != nil || out.Text != "oui" || len(out.Segments) != 1 {
		t.Fatalf("json body: out=%+v err=%v", out, err)
	}
	if _, err := NewWhisperHTTP(srv.URL+"/fail", srv.Client()).Transcribe(context.Background(), writeAudio(t), Options{}); err == nil {
		t.Fatalf("expected error for 503")
	}
}

func TestTranscriptionFromResponse(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{
			Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{Transcript: "bonjour", Confidence: 0.6},
				{Transcript: "bonsoir", Confidence: 0.8},
			},
			ResultEndTime: durationpb.New(2500 * time.Millisecond),
		},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "  "}}, ResultEndTime: durationpb.New(3 * time.Second)},
		{
			Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: " merci ", Confidence: 0.4}},
			ResultEndTime: durationpb.New(4 * time.Second),
		},
	}}
	tr := transcriptionFromResponse(resp, "fr")
	if tr.Text != "bonsoir merci" {
		t.Fatalf("text: got=%q", tr.Text)
	}
	if tr.Language != "fr" {
		t.Fatalf("language: want=fr got=%q", tr.Language)
	}
	if tr.LanguageProbability < 0.59 || tr.LanguageProbability > 0.61 {
		t.Fatalf("confidence: want~0.6 got=%v", tr.LanguageProbability)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("segments: want=2 got=%d", len(tr.Segments))
	}
	first, second := tr.Segments[0], tr.Segments[1]
	if first.Start != 0 || first.End != 2.5 || first.Text != "bonsoir" {
		t.Fatalf("first segment: got=%+v", first)
	}
	if second.Start != 3 || second.End != 4 || second.Text != "merci" {
		t.Fatalf("second segment: got=%+v", second)
	}

	empty := transcriptionFromResponse(&speechpb.LongRunningRecognizeResponse{}, "en")
	if empty.Text != "" || empty.LanguageProbability != 1.0 || len(empty.Segments) != 0 {
		t.Fatalf("empty: got=%+v", empty)
	}
	if nilResp := transcriptionFromResponse(nil, "en"); nilResp.Text != "" {
		t.Fatalf("nil response: got=%+v", nilResp)
	}
}
