// Package pyrunner executes the embedded Python helpers that drive the
// pyannote and whisper models.
package pyrunner

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

//go:embed assets/pyannote_helper.py
var pyannoteScript []byte

//go:embed assets/whisper_helper.py
var whisperScript []byte

type Script struct {
	Name   string
	Source []byte
}

var (
	Pyannote = Script{Name: "callsplit_pyannote.py", Source: pyannoteScript}
	Whisper  = Script{Name: "callsplit_whisper.py", Source: whisperScript}
)

// ExitError carries the helper's stderr when it exits non-zero.
type ExitError struct {
	Script string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no output"
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Script, e.Code, msg)
}

type Runner struct {
	Python  string
	WorkDir string
	// Env is appended to the parent environment. Secrets go here, never in argv.
	Env []string
}

func New(python, workDir string, env ...string) *Runner {
	if python == "" {
		python = "python3"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Runner{Python: python, WorkDir: workDir, Env: env}
}

// Run writes the script to its own file in the work dir, executes it and
// returns stdout. The file is removed afterwards, so concurrent runs never
// share a half-written helper. A context deadline is reported as
// context.DeadlineExceeded.
func (r *Runner) Run(ctx context.Context, s Script, args ...string) ([]byte, error) {
	path, err := r.writeScript(s)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, r.Python, append([]string{path}, args...)...)
	cmd.Env = append(os.Environ(), r.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, ctxErr)
	}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, &ExitError{Script: s.Name, Code: ee.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("run %s: %w", s.Name, err)
	}
	return stdout.Bytes(), nil
}

func (r *Runner) writeScript(s Script) (string, error) {
	if err := os.MkdirAll(r.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir work dir: %w", err)
	}
	pattern := strings.TrimSuffix(s.Name, filepath.Ext(s.Name)) + "_*.py"
	f, err := os.CreateTemp(r.WorkDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create helper script: %w", err)
	}
	if _, err := f.Write(s.Source); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	return f.Name(), nil
}

// Import reports whether the interpreter can import module.
func (r *Runner) Import(ctx context.Context, module string) (bool, string) {
	cmd := exec.CommandContext(ctx, r.Python, "-c", "import "+module)
	cmd.Env = append(os.Environ(), r.Env...)
	out, err := cmd.CombinedOutput()
	return err == nil, strings.TrimSpace(string(out))
}

// Version returns the interpreter's version line.
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.Python, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", r.Python, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// PipInstall installs pkg into the interpreter's environment.
func (r *Runner) PipInstall(ctx context.Context, pkg string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Python, "-m", "pip", "install", "--break-system-packages", pkg)
	cmd.Env = append(os.Environ(), r.Env...)
	out, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return string(out), fmt.Errorf("pip install %s: %w", pkg, ctxErr)
	}
	if err != nil {
		return string(out), fmt.Errorf("pip install %s: %w", pkg, err)
	}
	return string(out), nil
}
