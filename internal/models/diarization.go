package models

// Turn is one speech turn reported by a diarization pipeline.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

func (t Turn) Duration() float64 { return t.End - t.Start }

type Segment struct {
	Start    float64 `json:"start" bson:"start"`
	End      float64 `json:"end" bson:"end"`
	Duration float64 `json:"duration" bson:"duration"`
	Speaker  string  `json:"speaker" bson:"speaker"`
}

// DiarizationResult is the JSON document written by the diarize command.
// Broker fields keep the "courtier" keys consumed downstream.
type DiarizationResult struct {
	Success           bool             `json:"success" bson:"success"`
	Error             string           `json:"error,omitempty" bson:"error,omitempty"`
	Fallback          bool             `json:"fallback,omitempty" bson:"fallback,omitempty"`
	TotalSpeakers     int              `json:"total_speakers" bson:"total_speakers"`
	BrokerSpeaker     *string          `json:"courtier_speaker" bson:"courtier_speaker"`
	ClientSpeakers    []string         `json:"client_speakers" bson:"client_speakers"`
	ClientSegments    []Segment        `json:"client_segments" bson:"client_segments"`
	SingleSpeakerMode bool             `json:"single_speaker_mode" bson:"single_speaker_mode"`
	Stats             DiarizationStats `json:"stats" bson:"stats"`
	UsedGPU           bool             `json:"-" bson:"used_gpu"`
}

type DiarizationStats struct {
	BrokerDuration    float64 `json:"courtier_duration" bson:"courtier_duration"`
	ClientDuration    float64 `json:"client_duration" bson:"client_duration"`
	BrokerNumSegments int     `json:"courtier_num_segments" bson:"courtier_num_segments"`
	ClientNumSegments int     `json:"client_num_segments" bson:"client_num_segments"`
}

// DiarizationFailure is the document written when a run fails.
type DiarizationFailure struct {
	Success        bool      `json:"success"`
	Error          string    `json:"error"`
	ClientSegments []Segment `json:"client_segments"`
}
