package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yoockh/callsplit/internal/models"
)

func TestPrintReport(t *testing.T) {
	r := models.UnavailableReport(time.Now(), "Health check timeout (30s)")
	r.Warnings = append(r.Warnings, "HUGGINGFACE_TOKEN not set")

	var buf bytes.Buffer
	printReport(&buf, r)
	out := buf.String()

	for _, want := range []string{
		"pyannote: unavailable",
		"error: Health check timeout (30s)",
		"warning: HUGGINGFACE_TOKEN not set",
		"huggingface_token",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "huggingface_token") > strings.Index(out, "torch") {
		t.Fatalf("checks should be sorted by name:\n%s", out)
	}
}
