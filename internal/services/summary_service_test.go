package services

import (
	"context"
	"strings"
	"testing"
)

type fakeLLM struct {
	chunks []string
	err    error
	prompt string
}

func (f *fakeLLM) StreamAnswer(_ context.Context, prompt string) (<-chan string, <-chan error) {
	f.prompt = prompt
	out := make(chan string, len(f.chunks))
	errs := make(chan error, 1)
	for _, c := range f.chunks {
		out <- c
	}
	close(out)
	if f.err != nil {
		errs <- f.err
	}
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error { return nil }

func TestSummarizeClient(t *testing.T) {
	l := &fakeLLM{chunks: []string{"Le client ", "cherche une assurance vie. "}}
	got, err := NewSummaryService(l).SummarizeClient(context.Background(), "je cherche une assurance vie", "fr")
	if err != nil {
		t.Fatalf("SummarizeClient: %v", err)
	}
	if got != "Le client cherche une assurance vie." {
		t.Fatalf("summary: got=%q", got)
	}
	if !strings.Contains(l.prompt, "je cherche une assurance vie") {
		t.Fatalf("prompt missing transcript: %q", l.prompt)
	}
}

func TestSummarizeClientEmptyAndError(t *testing.T) {
	l := &fakeLLM{}
	if got, err := NewSummaryService(l).SummarizeClient(context.Background(), "  ", "fr"); got != "" || err != nil || l.prompt != "" {
		t.Fatalf("empty transcript should skip the model: got=%q err=%v", got, err)
	}
	if _, err := NewSummaryService(&fakeLLM{err: errBoom}).SummarizeClient(context.Background(), "x", "fr"); err == nil {
		t.Fatalf("expected error")
	}
}
