package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/providers/diarizer"
	mongorepo "github.com/yoockh/callsplit/internal/repositories/mongo"
	"github.com/yoockh/callsplit/internal/utils"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type fakeLogRepo struct {
	mu   sync.Mutex
	rows []models.DiarizationLog
}

func (f *fakeLogRepo) Insert(_ context.Context, row *models.DiarizationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID == "" {
		row.ID = "log-" + string(rune('a'+len(f.rows)))
	}
	f.rows = append(f.rows, *row)
	return nil
}

func (f *fakeLogRepo) ListSince(_ context.Context, since time.Time) ([]models.DiarizationLog, error) {
	var out []models.DiarizationLog
	for _, r := range f.rows {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLogRepo) RecentFailures(_ context.Context, limit int) ([]models.DiarizationLog, error) {
	var out []models.DiarizationLog
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].Status.IsFailure() {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeLogRepo) Latest(_ context.Context, since time.Time, n int) ([]models.DiarizationLog, error) {
	var out []models.DiarizationLog
	for i := len(f.rows) - 1; i >= 0 && len(out) < n; i-- {
		if !f.rows[i].CreatedAt.Before(since) {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

type fakeProvider struct {
	available bool
	out       *diarizer.Output
	err       error
	block     bool
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) IsAvailable(context.Context) bool { return f.available }
func (f *fakeProvider) Diarize(ctx context.Context, _ string) (*diarizer.Output, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.out, f.err
}

type fakeRecordingRepo struct {
	mu    sync.Mutex
	items map[string]*models.Recording
}

func newFakeRecordingRepo() *fakeRecordingRepo {
	return &fakeRecordingRepo{items: map[string]*models.Recording{}}
}

func (f *fakeRecordingRepo) Create(_ context.Context, rec *models.Recording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.items[rec.RecordingID] = &cp
	return nil
}

func (f *fakeRecordingRepo) GetByRecordingID(_ context.Context, id string) (*models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecordingRepo) SetStatus(_ context.Context, id string, status models.RecordingStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok {
		return utils.ErrNotFound
	}
	rec.Status = status
	if errMsg != "" {
		rec.Error = errMsg
	}
	return nil
}

func (f *fakeRecordingRepo) SaveResults(_ context.Context, id string, res mongorepo.RecordingResults) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[id]
	if !ok {
		return utils.ErrNotFound
	}
	rec.Diarization = res.Diarization
	rec.Transcription = res.Transcription
	rec.ClientOnly = res.ClientOnly
	rec.Summary = res.Summary
	rec.Artifacts = res.Artifacts
	return nil
}

type fakeQueue struct {
	queued []string
	err    error
}

func (q *fakeQueue) Enqueue(_ context.Context, rec *models.Recording) error {
	if q.err != nil {
		return q.err
	}
	q.queued = append(q.queued, rec.RecordingID)
	return nil
}

var errBoom = errors.New("boom")
