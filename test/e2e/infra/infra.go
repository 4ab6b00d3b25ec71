package infra

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const stopTimeout = 15 * time.Second

// EngineConfig holds the flags used to start an engine process.
type EngineConfig struct {
	Port        int
	Workers     int
	DrainPolicy string // "run" or "discard"
	AuthSecret  string // empty disables authentication
	DataFolder  string
}

// EngineProcess runs the engine binary as a child process.
type EngineProcess struct {
	bin    string
	cmd    *exec.Cmd
	stdout bytes.Buffer
	cfg    EngineConfig
}

func NewEngineProcess(bin string) *EngineProcess {
	return &EngineProcess{bin: bin}
}

// Start launches `engine run` and waits for /health to answer.
func (p *EngineProcess) Start(ctx context.Context, cfg EngineConfig) (string, error) {
	args := []string{
		"run",
		"--http-port", strconv.Itoa(cfg.Port),
		"--workers", strconv.Itoa(cfg.Workers),
		"--log-level", "debug",
	}
	if cfg.DrainPolicy != "" {
		args = append(args, "--drain-policy", cfg.DrainPolicy)
	}
	if cfg.DataFolder != "" {
		args = append(args, "--data-folder", cfg.DataFolder)
	}

	p.stdout.Reset()
	p.cfg = cfg
	p.cmd = exec.Command(p.bin, args...)
	p.cmd.Stdout = &p.stdout
	p.cmd.Stderr = os.Stderr
	p.cmd.Env = os.Environ()
	if cfg.AuthSecret != "" {
		// the secret goes through the environment so it stays out of ps output
		p.cmd.Env = append(p.cmd.Env, "ENGINE_AUTH_ENABLED=true", "ENGINE_AUTH_SECRET="+cfg.AuthSecret)
	}

	if err := p.cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start engine: %w", err)
	}
	zap.S().Infow("engine started", "pid", p.cmd.Process.Pid, "args", args)

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			return struct{}{}, err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, fmt.Errorf("health returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(100*time.Millisecond)), backoff.WithMaxElapsedTime(10*time.Second))
	if err != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
		return "", fmt.Errorf("engine did not become healthy: %w", err)
	}

	return baseURL, nil
}

// Stop sends SIGTERM and waits for the process to exit. It returns what the
// engine printed on stdout, which holds the shutdown summary.
func (p *EngineProcess) Stop() (string, error) {
	if p.cmd == nil || p.cmd.Process == nil {
		return "", nil
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return "", fmt.Errorf("failed to signal engine: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case err := <-done:
		p.cmd = nil
		if err != nil {
			return p.stdout.String(), fmt.Errorf("engine exited with error: %w", err)
		}
		zap.S().Info("engine stopped")
		return p.stdout.String(), nil
	case <-time.After(stopTimeout):
		_ = p.cmd.Process.Kill()
		<-done
		p.cmd = nil
		return p.stdout.String(), fmt.Errorf("engine did not stop within %s", stopTimeout)
	}
}

// Restart stops the engine and starts it again with the same configuration.
func (p *EngineProcess) Restart(ctx context.Context) (string, error) {
	if _, err := p.Stop(); err != nil {
		return "", err
	}
	return p.Start(ctx, p.cfg)
}
