package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path"
	"slices"
	"strings"
	"time"
)

// Archiver stores a processed recording's artifacts under
// recordings/<recording_id>/.
type Archiver struct {
	up Uploader
}

func NewArchiver(up Uploader) *Archiver { return &Archiver{up: up} }

// Archive uploads the client-only audio (when present) and each JSON document,
// returning the stored paths in upload order.
func (a *Archiver) Archive(ctx context.Context, recordingID, clientAudio string, docs map[string]any) ([]string, error) {
	prefix := path.Join("recordings", recordingID)
	var stored []string

	if clientAudio != "" {
		f, err := os.Open(clientAudio)
		if err != nil {
			return stored, fmt.Errorf("open client audio: %w", err)
		}
		p, err := a.up.Upload(ctx, path.Join(prefix, "client.wav"), "audio/wav", f)
		f.Close()
		if err != nil {
			return stored, fmt.Errorf("upload client audio: %w", err)
		}
		stored = append(stored, p)
	}

	for _, name := range slices.Sorted(maps.Keys(docs)) {
		b, err := json.MarshalIndent(docs[name], "", "  ")
		if err != nil {
			return stored, fmt.Errorf("encode %s: %w", name, err)
		}
		p, err := a.up.Upload(ctx, path.Join(prefix, name+".json"), "application/json", bytes.NewReader(b))
		if err != nil {
			return stored, fmt.Errorf("upload %s: %w", name, err)
		}
		stored = append(stored, p)
	}
	return stored, nil
}

// ObjectName strips the gs://<bucket>/ prefix Upload returns.
func ObjectName(stored string) string {
	rest, ok := strings.CutPrefix(stored, "gs://")
	if !ok {
		return stored
	}
	if _, obj, found := strings.Cut(rest, "/"); found {
		return obj
	}
	return ""
}

type SignedArtifact struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// SignAll returns a time-limited GET URL for every stored artifact.
func SignAll(ctx context.Context, s Signer, stored []string, ttl time.Duration) ([]SignedArtifact, error) {
	out := make([]SignedArtifact, 0, len(stored))
	for _, p := range stored {
		u, err := s.SignedGetURL(ctx, ObjectName(p), ttl)
		if err != nil {
			return nil, fmt.Errorf("sign %s: %w", p, err)
		}
		out = append(out, SignedArtifact{Path: p, URL: u})
	}
	return out, nil
}
