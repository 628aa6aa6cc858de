package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/yoockh/callsplit/internal/models"
	mongorepo "github.com/yoockh/callsplit/internal/repositories/mongo"
	"github.com/yoockh/callsplit/internal/services"
	"github.com/yoockh/callsplit/internal/utils"
)

type memRecordingRepo struct {
	mu    sync.Mutex
	items map[string]*models.Recording
}

func (m *memRecordingRepo) Create(_ context.Context, rec *models.Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.items[rec.RecordingID] = &cp
	return nil
}

func (m *memRecordingRepo) GetByRecordingID(_ context.Context, id string) (*models.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRecordingRepo) SetStatus(_ context.Context, id string, status models.RecordingStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.items[id]; ok {
		rec.Status = status
	}
	return nil
}

func (m *memRecordingRepo) SaveResults(context.Context, string, mongorepo.RecordingResults) error {
	return nil
}

type nopQueue struct{}

func (nopQueue) Enqueue(context.Context, *models.Recording) error { return nil }

func TestCreateRecordingAudioRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "audio")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "call.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(base, "secret.wav")
	if err := os.WriteFile(secret, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := services.NewRecordingService(&memRecordingRepo{items: map[string]*models.Recording{}}, nopQueue{}, root, "fr")
	r := recordingRouter(svc, "u1")

	if w := do(r, http.MethodPost, "/recordings", map[string]string{"audio_path": "call.wav"}); w.Code != http.StatusAccepted {
		t.Fatalf("inside root: want=202 got=%d body=%s", w.Code, w.Body.String())
	}

	// An existing and a missing file outside the root must look the same.
	var bodies []string
	for _, p := range []string{"../secret.wav", "../missing.wav", secret, filepath.Join(base, "missing.wav"), "/etc/passwd"} {
		w := do(r, http.MethodPost, "/recordings", map[string]string{"audio_path": p})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: want=400 got=%d body=%s", p, w.Code, w.Body.String())
		}
		var apiErr APIError
		_ = json.Unmarshal(w.Body.Bytes(), &apiErr)
		if apiErr.Code != utils.CodeInvalidArgument {
			t.Fatalf("%s: code: want=%s got=%s", p, utils.CodeInvalidArgument, apiErr.Code)
		}
		bodies = append(bodies, w.Body.String())
	}
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Fatalf("outside-root responses differ: %q vs %q", bodies[0], b)
		}
	}
}
