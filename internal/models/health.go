package models

import "time"

type CheckStatus string

const (
	CheckPending CheckStatus = "pending"
	CheckOK      CheckStatus = "ok"
	CheckWarning CheckStatus = "warning"
	CheckError   CheckStatus = "error"
)

// Check is a single health probe result. Optional fields are only set by the
// probes that produce them.
type Check struct {
	Status        CheckStatus `json:"status"`
	Message       string      `json:"message"`
	CUDAAvailable *bool       `json:"cuda_available,omitempty"`
	Device        string      `json:"device,omitempty"`
	TokenPrefix   string      `json:"token_prefix,omitempty"`
	ConfigPath    string      `json:"config_path,omitempty"`
}

type HealthChecks struct {
	Torch            Check `json:"torch"`
	Pyannote         Check `json:"pyannote"`
	Model            Check `json:"model"`
	HuggingFaceToken Check `json:"huggingface_token"`
}

func (c HealthChecks) All() map[string]Check {
	return map[string]Check{
		"torch":             c.Torch,
		"pyannote":          c.Pyannote,
		"model":             c.Model,
		"huggingface_token": c.HuggingFaceToken,
	}
}

type HealthReport struct {
	Available     bool         `json:"available"`
	PythonVersion string       `json:"python_version,omitempty"`
	Checks        HealthChecks `json:"checks"`
	Errors        []string     `json:"errors"`
	Warnings      []string     `json:"warnings"`
	CheckedAt     time.Time    `json:"checked_at"`
}

func NewHealthReport() *HealthReport {
	pending := Check{Status: CheckPending}
	return &HealthReport{
		Checks: HealthChecks{
			Torch:            pending,
			Pyannote:         pending,
			Model:            pending,
			HuggingFaceToken: pending,
		},
		Errors:   []string{},
		Warnings: []string{},
	}
}

// Finalize sets Available: every check ok or warning, and no recorded errors.
func (r *HealthReport) Finalize(now time.Time) {
	ok := true
	for _, c := range r.Checks.All() {
		if c.Status != CheckOK && c.Status != CheckWarning {
			ok = false
			break
		}
	}
	r.Available = ok && len(r.Errors) == 0
	r.CheckedAt = now.UTC()
}

// UnavailableReport is returned when the check itself could not run.
func UnavailableReport(now time.Time, msg string) *HealthReport {
	r := NewHealthReport()
	r.Errors = append(r.Errors, msg)
	r.Available = false
	r.CheckedAt = now.UTC()
	return r
}
