package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "trackfetch-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// healthChecker is satisfied by the HTTP backend
type healthChecker interface {
	Healthy(ctx context.Context) bool
}

func isServerRunning(ctx context.Context, backend healthChecker) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return backend.Healthy(ctx)
}

// findServerBinary looks next to the CLI, then on PATH, then in common install dirs
func findServerBinary() (string, error) {
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), serverBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(serverBinary); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, p := range []string{
		filepath.Join("/usr/local/bin", serverBinary),
		filepath.Join(home, "go", "bin", serverBinary),
		filepath.Join(home, ".local", "bin", serverBinary),
	} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%s binary not found", serverBinary)
}

// startServerBackground starts the server detached from this process
func startServerBackground(configPath string) error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	var args []string
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.Command(serverPath, args...)
	detachProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func waitForServerReady(ctx context.Context, backend healthChecker) error {
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()

	deadline := time.After(serverStartTimeout)
	for {
		if isServerRunning(ctx, backend) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("server did not start within %v", serverStartTimeout)
		case <-ticker.C:
		}
	}
}

// ensureServerRunning starts a local server when none answers at the configured address
func ensureServerRunning(ctx context.Context, backend healthChecker, configPath string) error {
	if isServerRunning(ctx, backend) {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Server not running, starting...")

	if err := startServerBackground(configPath); err != nil {
		return err
	}
	if err := waitForServerReady(ctx, backend); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Server started")
	return nil
}
