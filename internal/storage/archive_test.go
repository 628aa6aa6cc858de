package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type memUploader struct {
	objects map[string]string
	types   map[string]string
	failOn  string
}

func (m *memUploader) Upload(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	if name == m.failOn {
		return "", errors.New("quota exceeded")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.objects[name] = string(b)
	m.types[name] = contentType
	return "gs://bucket/" + name, nil
}

func newMem() *memUploader {
	return &memUploader{objects: map[string]string{}, types: map[string]string{}}
}

func TestArchive(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "client.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	up := newMem()

	paths, err := NewArchiver(up).Archive(context.Background(), "rec-1", audio, map[string]any{
		"transcription": map[string]string{"text": "bonjour"},
		"diarization":   map[string]bool{"success": true},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	want := []string{
		"gs://bucket/recordings/rec-1/client.wav",
		"gs://bucket/recordings/rec-1/diarization.json",
		"gs://bucket/recordings/rec-1/transcription.json",
	}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("paths: want=%v got=%v", want, paths)
	}
	if up.objects["recordings/rec-1/client.wav"] != "RIFF" || up.types["recordings/rec-1/client.wav"] != "audio/wav" {
		t.Fatalf("audio object not stored correctly")
	}
	if !strings.Contains(up.objects["recordings/rec-1/transcription.json"], `"text": "bonjour"`) {
		t.Fatalf("json object: %s", up.objects["recordings/rec-1/transcription.json"])
	}
}

func TestArchiveWithoutAudioAndFailure(t *testing.T) {
	up := newMem()
	up.failOn = "recordings/rec-2/b.json"

	paths, err := NewArchiver(up).Archive(context.Background(), "rec-2", "", map[string]any{"a": 1, "b": 2})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("want upload error, got=%v", err)
	}
	if len(paths) != 1 || paths[0] != "gs://bucket/recordings/rec-2/a.json" {
		t.Fatalf("partial paths: %v", paths)
	}
}

type prefixSigner struct{ fail bool }

func (p prefixSigner) SignedGetURL(_ context.Context, obj string, ttl time.Duration) (string, error) {
	if p.fail {
		return "", errors.New("no credentials")
	}
	return "https://signed.example/" + obj + "?ttl=" + ttl.String(), nil
}

func TestObjectName(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/recordings/r1/client.wav": "recordings/r1/client.wav",
		"recordings/r1/diarization.json":       "recordings/r1/diarization.json",
		"gs://bucket":                          "",
	}
	for in, want := range tests {
		if got := ObjectName(in); got != want {
			t.Fatalf("ObjectName(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestSignAll(t *testing.T) {
	got, err := SignAll(context.Background(), prefixSigner{}, []string{"gs://b/recordings/r1/client.wav"}, time.Minute)
	if err != nil {
		t.Fatalf("SignAll: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://signed.example/recordings/r1/client.wav?ttl=1m0s" {
		t.Fatalf("unexpected: %+v", got)
	}

	if _, err := SignAll(context.Background(), prefixSigner{fail: true}, []string{"gs://b/x"}, time.Minute); err == nil {
		t.Fatalf("expected signing error")
	}
}
