package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yoockh/callsplit/internal/models"
)

const openAITranscriptionsURL = "https://api.openai.com/v1/audio/transcriptions"

type OpenAI struct {
	apiKey   string
	model    string
	endpoint string
	hc       *http.Client
}

func NewOpenAI(apiKey, model string, hc *http.Client) *OpenAI {
	if model == "" {
		model = "whisper-1"
	}
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Minute}
	}
	return &OpenAI{apiKey: apiKey, model: model, endpoint: openAITranscriptionsURL, hc: hc}
}

func (o *OpenAI) Name() string { return "openai" }

type openAIResp struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe ignores opts.Model; the API model comes from OPENAI_TRANSCRIBE_MODEL.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string, opts Options) (models.Transcription, error) {
	if err := requireAudio(audioPath); err != nil {
		return models.Transcription{}, err
	}
	if o.apiKey == "" {
		return models.Transcription{}, errors.New("OPENAI_API_KEY not set")
	}
	opts = opts.withDefaults()

	f, err := os.Open(audioPath)
	if err != nil {
		return models.Transcription{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("model", o.model)
	_ = mw.WriteField("language", opts.Language)
	if o.model == "whisper-1" {
		_ = mw.WriteField("response_format", "verbose_json")
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return models.Transcription{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return models.Transcription{}, err
	}
	if err := mw.Close(); err != nil {
		return models.Transcription{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, &body)
	if err != nil {
		return models.Transcription{}, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.hc.Do(req)
	if err != nil {
		return models.Transcription{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.Transcription{}, fmt.Errorf("openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var or openAIResp
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return models.Transcription{}, err
	}

	out := models.Transcription{
		Text:                strings.TrimSpace(or.Text),
		Language:            opts.Language,
		LanguageProbability: 1.0,
	}
	for _, s := range or.Segments {
		out.Segments = append(out.Segments, models.TranscriptionSegment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return out, nil
}
