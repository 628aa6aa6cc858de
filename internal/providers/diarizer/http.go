package diarizer

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

// HTTP talks to a remote diarization service exposing POST /diarize.
type HTTP struct {
	baseURL string
	c       *http.Client
}

func NewHTTP(baseURL string, c *http.Client) *HTTP {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Minute}
	}
	return &HTTP{baseURL: strings.TrimRight(baseURL, "/"), c: c}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) IsAvailable(context.Context) bool { return h.baseURL != "" }

type httpResponse struct {
	Segments    []models.Turn `json:"segments"`
	NumSpeakers int           `json:"num_speakers"`
}

func (h *HTTP) Diarize(ctx context.Context, audioPath string) (*Output, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", audioPath, err)
	}
	defer fd.Close()
	if _, err = io.Copy(fw, fd); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/diarize", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("diarize %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarize decode: %w", err)
	}
	if out.Segments == nil {
		out.Segments = []models.Turn{}
	}
	return &Output{Turns: out.Segments}, nil
}
