package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type DiarizationStatus string

const (
	DiarizationSuccess  DiarizationStatus = "success"
	DiarizationFailed   DiarizationStatus = "failed"
	DiarizationFallback DiarizationStatus = "fallback"
	DiarizationTimeout  DiarizationStatus = "timeout"
	DiarizationSkipped  DiarizationStatus = "skipped"
)

// IsFailure reports statuses that count against the failure rate.
func (s DiarizationStatus) IsFailure() bool {
	return s == DiarizationFailed || s == DiarizationTimeout
}

type DiarizationLog struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RecordingID string `gorm:"column:recording_id;type:text;index" json:"recording_id,omitempty"`
	UserID      string `gorm:"column:user_id;type:text;index" json:"user_id,omitempty"`

	Status       DiarizationStatus `gorm:"column:status;type:text;index:idx_diarization_logs_status_created,priority:1" json:"status"`
	ErrorMessage string            `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	ErrorCode    string            `gorm:"column:error_code;type:text" json:"error_code,omitempty"`

	DurationMS           *int64 `gorm:"column:duration_ms" json:"duration_ms,omitempty"`
	AudioDurationSeconds *int64 `gorm:"column:audio_duration_seconds" json:"audio_duration_seconds,omitempty"`
	FileSizeBytes        *int64 `gorm:"column:file_size_bytes" json:"file_size_bytes,omitempty"`

	SpeakersDetected      *int           `gorm:"column:speakers_detected" json:"speakers_detected,omitempty"`
	BrokerSpeakerID       *string        `gorm:"column:broker_speaker_id;type:text" json:"broker_speaker_id,omitempty"`
	ClientSpeakers        pq.StringArray `gorm:"column:client_speakers;type:text[]" json:"client_speakers,omitempty"`
	BrokerDurationSeconds *float64       `gorm:"column:broker_duration_seconds" json:"broker_duration_seconds,omitempty"`
	ClientDurationSeconds *float64       `gorm:"column:client_duration_seconds" json:"client_duration_seconds,omitempty"`
	BrokerSegmentsCount   *int           `gorm:"column:broker_segments_count" json:"broker_segments_count,omitempty"`
	ClientSegmentsCount   *int           `gorm:"column:client_segments_count" json:"client_segments_count,omitempty"`
	SingleSpeakerMode     bool           `gorm:"column:single_speaker_mode;default:false" json:"single_speaker_mode"`

	ModelVersion string         `gorm:"column:model_version;type:text" json:"model_version,omitempty"`
	UsedGPU      bool           `gorm:"column:used_gpu;default:false" json:"used_gpu"`
	RawOutput    datatypes.JSON `gorm:"column:raw_output;type:jsonb" json:"raw_output,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index;index:idx_diarization_logs_status_created,priority:2" json:"created_at"`
}

func (DiarizationLog) TableName() string { return "diarization_logs" }
