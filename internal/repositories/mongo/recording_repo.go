package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/utils"
)

type RecordingRepository interface {
	Create(ctx context.Context, rec *models.Recording) error
	GetByRecordingID(ctx context.Context, recordingID string) (*models.Recording, error)
	SetStatus(ctx context.Context, recordingID string, status models.RecordingStatus, errMsg string) error
	SaveResults(ctx context.Context, recordingID string, res RecordingResults) error
}

// RecordingResults is everything the pipeline writes back once a run ends.
type RecordingResults struct {
	Diarization   *models.DiarizationResult
	Transcription *models.Transcription
	ClientOnly    bool
	Summary       string
	Artifacts     []string
	ProcessedAt   time.Time
}

type recordingRepo struct {
	col *mongo.Collection
}

func NewRecordingRepo(db *mongo.Database) RecordingRepository {
	return &recordingRepo{col: db.Collection("recordings")}
}

func (r *recordingRepo) Create(ctx context.Context, rec *models.Recording) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

func (r *recordingRepo) GetByRecordingID(ctx context.Context, recordingID string) (*models.Recording, error) {
	var rec models.Recording
	err := r.col.FindOne(ctx, bson.M{"recording_id": recordingID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &rec, err
}

func (r *recordingRepo) SetStatus(ctx context.Context, recordingID string, status models.RecordingStatus, errMsg string) error {
	set := bson.M{"status": status}
	if errMsg != "" {
		set["error"] = errMsg
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"recording_id": recordingID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *recordingRepo) SaveResults(ctx context.Context, recordingID string, res RecordingResults) error {
	if res.ProcessedAt.IsZero() {
		res.ProcessedAt = time.Now().UTC()
	}
	_, err := r.col.UpdateOne(ctx,
		bson.M{"recording_id": recordingID},
		bson.M{"$set": bson.M{
			"diarization":   res.Diarization,
			"transcription": res.Transcription,
			"client_only":   res.ClientOnly,
			"summary":       res.Summary,
			"artifacts":     res.Artifacts,
			"processed_at":  res.ProcessedAt.UTC(),
		}},
	)
	return err
}
