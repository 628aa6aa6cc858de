package services

import (
	"context"
	"strings"

	"github.com/yoockh/callsplit/internal/providers/llm"
	"github.com/yoockh/callsplit/internal/utils"
)

type SummaryService interface {
	SummarizeClient(ctx context.Context, transcript, language string) (string, error)
}

type summaryService struct {
	llm llm.Provider
}

func NewSummaryService(p llm.Provider) SummaryService {
	return &summaryService{llm: p}
}

func (s *summaryService) SummarizeClient(ctx context.Context, transcript, language string) (string, error) {
	const op = "SummaryService.SummarizeClient"

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", nil
	}

	prompt := "Transcript language: " + language + "\n\nClient speech:\n" + transcript

	chunks, errs := s.llm.StreamAnswer(ctx, prompt)
	var b strings.Builder
	for c := range chunks {
		b.WriteString(c)
	}
	if err := <-errs; err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "summary generation failed", err)
	}
	return strings.TrimSpace(b.String()), nil
}
