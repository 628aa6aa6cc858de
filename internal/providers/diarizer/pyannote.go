package diarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/pyrunner"
)

type Pyannote struct {
	runner *pyrunner.Runner
	model  string

	mu        sync.Mutex
	checked   bool
	available bool
}

func NewPyannote(python, workDir, model, hfToken string) *Pyannote {
	var env []string
	if hfToken != "" {
		env = append(env, "HUGGINGFACE_TOKEN="+hfToken)
	}
	return &Pyannote{runner: pyrunner.New(python, workDir, env...), model: model}
}

func (p *Pyannote) Name() string { return "pyannote" }

// IsAvailable imports pyannote.audio once per process and remembers the answer.
func (p *Pyannote) IsAvailable(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.checked {
		p.available, _ = p.runner.Import(ctx, "pyannote.audio")
		p.checked = true
	}
	return p.available
}

type pyannoteOutput struct {
	Turns  []models.Turn `json:"turns"`
	Device string        `json:"device"`
}

func (p *Pyannote) Diarize(ctx context.Context, audioPath string) (*Output, error) {
	args := []string{}
	if p.model != "" {
		args = append(args, "--model", p.model)
	}
	args = append(args, audioPath)

	raw, err := p.runner.Run(ctx, pyrunner.Pyannote, args...)
	if err != nil {
		return nil, err
	}

	var out pyannoteOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode pyannote output: %w", err)
	}
	if out.Turns == nil {
		out.Turns = []models.Turn{}
	}
	return &Output{Turns: out.Turns, Device: out.Device, Model: p.model}, nil
}
