package stt

import (
	"bytes"
	"context"
	"encoding/json"
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

// WhisperHTTP posts audio to a self-hosted whisper server.
type WhisperHTTP struct {
	endpoint string
	hc       *http.Client
}

func NewWhisperHTTP(endpoint string, hc *http.Client) *WhisperHTTP {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Minute}
	}
	return &WhisperHTTP{endpoint: endpoint, hc: hc}
}

func (w *WhisperHTTP) Name() string { return "http" }

type whisperServerResp struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe accepts either a plain-text body or a JSON {"text": ...} body.
func (w *WhisperHTTP) Transcribe(ctx context.Context, audioPath string, opts Options) (models.Transcription, error) {
	if err := requireAudio(audioPath); err != nil {
		return models.Transcription{}, err
	}
	opts = opts.withDefaults()

	f, err := os.Open(audioPath)
	if err != nil {
		return models.Transcription{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return models.Transcription{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return models.Transcription{}, err
	}
	_ = mw.WriteField("language", opts.Language)
	_ = mw.WriteField("model", opts.Model)
	if err := mw.Close(); err != nil {
		return models.Transcription{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &body)
	if err != nil {
		return models.Transcription{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.hc.Do(req)
	if err != nil {
		return models.Transcription{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Transcription{}, err
	}
	if resp.StatusCode >= 300 {
		return models.Transcription{}, fmt.Errorf("whisper server %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	out := models.Transcription{Language: opts.Language, LanguageProbability: 1.0}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var parsed whisperServerResp
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return models.Transcription{}, fmt.Errorf("decode whisper response: %w", err)
		}
		out.Text = strings.TrimSpace(parsed.Text)
		if parsed.Language != "" {
			out.Language = parsed.Language
		}
		for _, s := range parsed.Segments {
			out.Segments = append(out.Segments, models.TranscriptionSegment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
		}
		return out, nil
	}
	out.Text = strings.TrimSpace(string(raw))
	return out, nil
}
