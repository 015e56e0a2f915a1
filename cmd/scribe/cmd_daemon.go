package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/config"
)

const (
	daemonBinary = "scribed"
	pidFileName  = "scribed.pid"
)

// cmdStart starts the daemon in the background
func cmdStart(cfg *config.Config) error {
	addr := cfg.Daemon.URL()
	if isRunning(addr) {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("setup scribe directory: %w", err)
	}

	binPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(binPath)
	cmd.Dir = dir
	cmd.Stdout = nil
	cmd.Stderr = nil
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning(addr) {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", addr)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'scribe logs')")
}

// cmdStop sends SIGTERM to the pid recorded by the daemon
func cmdStop(cfg *config.Config) error {
	addr := cfg.Daemon.URL()
	if !isRunning(addr) {
		fmt.Println("Daemon is not running")
		return nil
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, pidFileName))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := stopDaemonProcess(process); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning(addr) {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status
func cmdStatus(cfg *config.Config) error {
	addr := cfg.Daemon.URL()
	if !isRunning(addr) {
		fmt.Println("Status: stopped")
		return nil
	}

	var status struct {
		Status     string `json:"status"`
		Version    string `json:"version"`
		Store      string `json:"store"`
		Challenges int    `json:"challenges"`
		Lessons    int    `json:"lessons"`
	}
	if err := newClient(cfg).getJSON("/v1/status", &status); err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	fmt.Printf("Status:     %s\n", status.Status)
	fmt.Printf("Version:    %s\n", status.Version)
	fmt.Printf("Store:      %s\n", status.Store)
	fmt.Printf("Challenges: %d\n", status.Challenges)
	fmt.Printf("Lessons:    %d\n", status.Lessons)
	fmt.Printf("Address:    %s\n", addr)

	return nil
}

// cmdLogs prints the tail of the daemon log file
func cmdLogs(cfg *config.Config) error {
	logPath := cfg.Daemon.LogFile
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Seek to end and go back ~4KB for recent logs
	info, _ := file.Stat()
	offset := info.Size() - 4096
	if offset < 0 {
		offset = 0
	}
	_, _ = file.Seek(offset, 0)

	reader := bufio.NewReader(file)
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Println(formatLogLine(line))
	}

	return scanner.Err()
}

// formatLogLine renders a JSON log record as "time LEVEL msg", passing
// through anything it cannot parse
func formatLogLine(line string) string {
	var rec struct {
		Time  time.Time `json:"time"`
		Level string    `json:"level"`
		Msg   string    `json:"msg"`
	}
	if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Msg == "" {
		return line
	}
	return fmt.Sprintf("%s %-5s %s", rec.Time.Format("15:04:05"), rec.Level, rec.Msg)
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning(addr string) bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(addr + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary locates the scribed binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), daemonBinary)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{
		"/usr/local/bin/scribed",
		"./scribed",
		"./cmd/scribed/scribed",
	} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("scribed binary not found (build with 'go build ./cmd/scribed')")
}
