package models

type Transcription struct {
	Text                string                 `json:"text" bson:"text"`
	Language            string                 `json:"language" bson:"language"`
	LanguageProbability float64                `json:"language_probability" bson:"language_probability"`
	Segments            []TranscriptionSegment `json:"segments,omitempty" bson:"segments,omitempty"`
}

type TranscriptionSegment struct {
	Start float64 `json:"start" bson:"start"`
	End   float64 `json:"end" bson:"end"`
	Text  string  `json:"text" bson:"text"`
}
