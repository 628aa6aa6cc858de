// Package health checks whether the pyannote stack can run on this host.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yoockh/callsplit/config"
	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/pyrunner"
	"github.com/yoockh/callsplit/internal/utils"
)

const DefaultHubURL = "https://huggingface.co"

type Checker struct {
	runner *pyrunner.Runner
	token  string
	model  string

	HubURL   string
	HubCache string
	HTTP     *http.Client
	Now      func() time.Time
}

func NewChecker(cfg config.Config) *Checker {
	var env []string
	if cfg.HuggingFaceToken != "" {
		env = append(env, "HUGGINGFACE_TOKEN="+cfg.HuggingFaceToken)
	}
	model := cfg.PyannoteModel
	if model == "" {
		model = config.DefaultPyannoteModel
	}
	return &Checker{
		runner:   pyrunner.New(cfg.PythonBin, cfg.WorkDir, env...),
		token:    cfg.HuggingFaceToken,
		model:    model,
		HubURL:   DefaultHubURL,
		HubCache: hubCacheDir(),
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		Now:      time.Now,
	}
}

// hubCacheDir follows huggingface_hub: HF_HUB_CACHE, then HF_HOME/hub, then
// ~/.cache/huggingface/hub.
func hubCacheDir() string {
	if v := os.Getenv("HF_HUB_CACHE"); v != "" {
		return v
	}
	if v := os.Getenv("HF_HOME"); v != "" {
		return filepath.Join(v, "hub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "huggingface", "hub")
}

type probeOutput struct {
	PythonVersion string `json:"python_version"`
	Torch         struct {
		Installed     bool   `json:"installed"`
		Version       string `json:"version"`
		CUDAAvailable bool   `json:"cuda_available"`
		Error         string `json:"error"`
	} `json:"torch"`
	Pyannote struct {
		Installed bool   `json:"installed"`
		Error     string `json:"error"`
	} `json:"pyannote"`
}

// Run produces a full report. The only error returned is the context's, so
// callers can tell a timeout from an unhealthy host.
func (c *Checker) Run(ctx context.Context) (*models.HealthReport, error) {
	raw, err := c.runner.Run(ctx, pyrunner.Pyannote, "--probe")
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return models.UnavailableReport(c.Now(), "Health check failed: "+truncate(err.Error(), 200)), nil
	}

	var probe probeOutput
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.UnavailableReport(c.Now(), "Invalid health check response: "+truncate(string(raw), 200)), nil
	}

	r := models.NewHealthReport()
	r.PythonVersion = probe.PythonVersion

	if !probe.Torch.Installed {
		r.Checks.Torch = models.Check{Status: models.CheckError, Message: "PyTorch not installed: " + probe.Torch.Error}
		r.Errors = append(r.Errors, "PyTorch is required but not installed")
		r.Finalize(c.Now())
		return r, nil
	}
	cuda := probe.Torch.CUDAAvailable
	device := "cpu"
	if cuda {
		device = "cuda"
	}
	r.Checks.Torch = models.Check{
		Status:        models.CheckOK,
		Message:       fmt.Sprintf("PyTorch %s installed", probe.Torch.Version),
		CUDAAvailable: &cuda,
		Device:        device,
	}

	if !probe.Pyannote.Installed {
		r.Checks.Pyannote = models.Check{Status: models.CheckError, Message: "pyannote.audio not installed: " + probe.Pyannote.Error}
		r.Errors = append(r.Errors, "pyannote.audio is required but not installed")
		r.Finalize(c.Now())
		return r, nil
	}
	r.Checks.Pyannote = models.Check{Status: models.CheckOK, Message: "pyannote.audio installed"}

	c.checkToken(r)
	c.checkModel(ctx, r)

	r.Finalize(c.Now())
	return r, nil
}

func (c *Checker) checkToken(r *models.HealthReport) {
	if c.token == "" {
		r.Checks.HuggingFaceToken = models.Check{Status: models.CheckWarning, Message: "No token configured - model access may fail"}
		r.Warnings = append(r.Warnings, "HUGGINGFACE_TOKEN not set - diarization may fail on first use")
		return
	}
	r.Checks.HuggingFaceToken = models.Check{
		Status:      models.CheckOK,
		Message:     "Token configured",
		TokenPrefix: utils.MaskToken(c.token),
	}
}

func (c *Checker) checkModel(ctx context.Context, r *models.HealthReport) {
	if path := c.cachedConfig(); path != "" {
		r.Checks.Model = models.Check{Status: models.CheckOK, Message: "Model cached locally", ConfigPath: path}
		return
	}

	url := fmt.Sprintf("%s/%s/resolve/main/config.yaml", strings.TrimRight(c.HubURL, "/"), c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.Checks.Model = models.Check{Status: models.CheckError, Message: "Error checking model: " + err.Error()}
		r.Errors = append(r.Errors, "Model check failed: "+err.Error())
		return
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		r.Checks.Model = models.Check{Status: models.CheckWarning, Message: "Could not verify model: " + err.Error()}
		r.Warnings = append(r.Warnings, "Model status unknown - may work on first use")
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		r.Checks.Model = models.Check{Status: models.CheckOK, Message: "Model accessible (remote config reachable)"}
	case resp.StatusCode == http.StatusUnauthorized:
		r.Checks.Model = models.Check{Status: models.CheckError, Message: "Model requires authentication - check HUGGINGFACE_TOKEN"}
		r.Errors = append(r.Errors, "HuggingFace authentication failed")
	case resp.StatusCode == http.StatusForbidden:
		r.Checks.Model = models.Check{Status: models.CheckError, Message: fmt.Sprintf("Model license not accepted - visit %s/%s", DefaultHubURL, c.model)}
		r.Errors = append(r.Errors, "pyannote model license not accepted on HuggingFace")
	default:
		r.Checks.Model = models.Check{Status: models.CheckError, Message: "Model access error: " + resp.Status}
		r.Errors = append(r.Errors, "Cannot access model: "+resp.Status)
	}
}

// cachedConfig returns the path of a cached config.yaml snapshot, or "".
func (c *Checker) cachedConfig() string {
	if c.HubCache == "" {
		return ""
	}
	repo := "models--" + strings.ReplaceAll(c.model, "/", "--")
	matches, err := filepath.Glob(filepath.Join(c.HubCache, repo, "snapshots", "*", "config.yaml"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
