package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RecordingStatus string

const (
	RecordingQueued     RecordingStatus = "queued"
	RecordingProcessing RecordingStatus = "processing"
	RecordingDone       RecordingStatus = "done"
	RecordingFailed     RecordingStatus = "failed"
)

type Recording struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RecordingID string             `bson:"recording_id" json:"recording_id"` // uuid v4
	UserID      string             `bson:"user_id" json:"user_id"`

	AudioPath string          `bson:"audio_path" json:"audio_path"`
	Language  string          `bson:"language" json:"language"`
	Model     string          `bson:"model" json:"model"`
	Status    RecordingStatus `bson:"status" json:"status"`
	Error     string          `bson:"error,omitempty" json:"error,omitempty"`

	Diarization   *DiarizationResult `bson:"diarization,omitempty" json:"diarization,omitempty"`
	Transcription *Transcription     `bson:"transcription,omitempty" json:"transcription,omitempty"`
	ClientOnly    bool               `bson:"client_only" json:"client_only"` // transcription covers client speech only
	Summary       string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Artifacts     []string           `bson:"artifacts,omitempty" json:"artifacts,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}
