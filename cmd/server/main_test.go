package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeforge/pkg/config"
)

// TestConfigureLogging tests the logging configuration function.
func TestConfigureLogging(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		expectedLevel logrus.Level
	}{
		{name: "debug level", logLevel: "debug", expectedLevel: logrus.DebugLevel},
		{name: "info level", logLevel: "info", expectedLevel: logrus.InfoLevel},
		{name: "warn level", logLevel: "warn", expectedLevel: logrus.WarnLevel},
		{name: "error level", logLevel: "error", expectedLevel: logrus.ErrorLevel},
		{name: "invalid level falls back to info", logLevel: "invalid", expectedLevel: logrus.InfoLevel},
		{name: "empty level falls back to info", logLevel: "", expectedLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logrus.SetOutput(io.Discard)
			defer logrus.SetOutput(os.Stderr)

			configureLogging(tt.logLevel)
			assert.Equal(t, tt.expectedLevel, logrus.GetLevel())
		})
	}
}

// TestLogStartupInfo tests that startup info is logged correctly.
func TestLogStartupInfo(t *testing.T) {
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	defer logrus.SetOutput(os.Stderr)

	cfg := &config.Config{
		ServerPort:     8080,
		WebDir:         "./web",
		SessionTimeout: 30 * time.Minute,
		LogLevel:       "info",
		EnableDevMode:  true,
	}

	logStartupInfo(cfg)

	output := buf.String()
	assert.Contains(t, output, "Starting Rune Forge server")
	assert.Contains(t, output, "8080")
	assert.Contains(t, output, "./web")
}

// TestSetupShutdownHandling tests the shutdown signal channel setup.
func TestSetupShutdownHandling(t *testing.T) {
	sigChan, errChan := setupShutdownHandling()

	assert.NotNil(t, sigChan)
	assert.NotNil(t, errChan)
	assert.Equal(t, 1, cap(sigChan))
	assert.Equal(t, 1, cap(errChan))

	signal.Stop(sigChan)
}

// TestInitializeServerWithValidConfig tests server initialization with a
// valid configuration, using dev mode so no real auth key is required.
func TestInitializeServerWithValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := t.TempDir()

	cfg := &config.Config{
		ServerPort:            0,
		WebDir:                tmpDir,
		DataDir:                dataDir,
		SessionTimeout:        30 * time.Minute,
		LogLevel:              "info",
		EnableDevMode:         true,
		AuthIssuer:            "runeforge",
		AuthAudience:          "runeforge-clients",
		MaxPlayersDefault:     6,
		MonsterCountDefault:   4,
		TurnTimeLimitDefault:  90 * time.Second,
		SessionReconnectGrace: 2 * time.Minute,
		SessionIdleTTL:        15 * time.Minute,
		SessionSweepInterval:  time.Minute,
		ActionQueueDepth:      32,
		ActionRatePerSecond:   5,
		ActionRateBurst:       10,
		MaxRequestSize:        1 << 20,
	}

	srv, listener := initializeServer(cfg)

	require.NotNil(t, srv)
	require.NotNil(t, listener)

	addr := listener.Addr().(*net.TCPAddr)
	assert.Greater(t, addr.Port, 0)

	listener.Close()
}

// TestStartServerAsync tests the asynchronous server start.
func TestStartServerAsync(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := t.TempDir()

	cfg := &config.Config{
		WebDir:                tmpDir,
		DataDir:                dataDir,
		EnableDevMode:         true,
		AuthIssuer:            "runeforge",
		AuthAudience:          "runeforge-clients",
		MaxPlayersDefault:     6,
		MonsterCountDefault:   4,
		TurnTimeLimitDefault:  90 * time.Second,
		SessionReconnectGrace: 2 * time.Minute,
		SessionIdleTTL:        15 * time.Minute,
		SessionSweepInterval:  time.Minute,
		ActionQueueDepth:      32,
		ActionRatePerSecond:   5,
		ActionRateBurst:       10,
		MaxRequestSize:        1 << 20,
	}

	srv, listener := initializeServer(cfg)
	defer listener.Close()

	errChan := make(chan error, 1)
	startServerAsync(srv, listener, errChan)

	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-errChan:
		t.Fatalf("Server failed unexpectedly: %v", err)
	default:
	}

	listener.Close()
	time.Sleep(100 * time.Millisecond)
}

// TestWaitForShutdownSignal_Signal tests that shutdown signal is handled.
func TestWaitForShutdownSignal_Signal(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	errChan := make(chan error, 1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		sigChan <- syscall.SIGINT
	}()

	done := make(chan struct{})
	go func() {
		waitForShutdownSignal(sigChan, errChan)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("waitForShutdownSignal did not return after signal")
	}
}

// TestWaitForShutdownSignal_Error tests that server errors trigger shutdown.
func TestWaitForShutdownSignal_Error(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	errChan := make(chan error, 1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		errChan <- assert.AnError
	}()

	done := make(chan struct{})
	go func() {
		waitForShutdownSignal(sigChan, errChan)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("waitForShutdownSignal did not return after error")
	}
}

// TestPerformGracefulShutdown tests the graceful shutdown process.
func TestPerformGracefulShutdown(t *testing.T) {
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(os.Stderr)

	tmpDir := t.TempDir()
	dataDir := t.TempDir()

	cfg := &config.Config{
		WebDir:                tmpDir,
		DataDir:                dataDir,
		EnableDevMode:         true,
		AuthIssuer:            "runeforge",
		AuthAudience:          "runeforge-clients",
		MaxPlayersDefault:     6,
		MonsterCountDefault:   4,
		TurnTimeLimitDefault:  90 * time.Second,
		SessionReconnectGrace: 2 * time.Minute,
		SessionIdleTTL:        15 * time.Minute,
		SessionSweepInterval:  time.Minute,
		ActionQueueDepth:      32,
		ActionRatePerSecond:   5,
		ActionRateBurst:       10,
		MaxRequestSize:        1 << 20,
		ShutdownTimeout:       5 * time.Second,
	}

	srv, listener := initializeServer(cfg)

	done := make(chan struct{})
	go func() {
		performGracefulShutdown(srv, listener, cfg.ShutdownTimeout)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Graceful shutdown did not complete in time")
	}
}

// TestLoadAndConfigureSystem tests the configuration loading function.
func TestLoadAndConfigureSystem(t *testing.T) {
	os.Setenv("SERVER_PORT", "9999")
	os.Setenv("LOG_LEVEL", "warn")
	defer os.Unsetenv("SERVER_PORT")
	defer os.Unsetenv("LOG_LEVEL")

	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(os.Stderr)

	cfg := loadAndConfigureSystem()

	require.NotNil(t, cfg)
	assert.Equal(t, 9999, cfg.ServerPort)
	assert.Equal(t, "warn", cfg.LogLevel)
}

// TestExecuteServerLifecycle tests the full server lifecycle with early shutdown.
func TestExecuteServerLifecycle(t *testing.T) {
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(os.Stderr)

	tmpDir := t.TempDir()
	dataDir := t.TempDir()

	cfg := &config.Config{
		ServerPort:            0,
		WebDir:                tmpDir,
		DataDir:                dataDir,
		SessionTimeout:        30 * time.Minute,
		LogLevel:              "info",
		EnableDevMode:         true,
		AuthIssuer:            "runeforge",
		AuthAudience:          "runeforge-clients",
		MaxPlayersDefault:     6,
		MonsterCountDefault:   4,
		TurnTimeLimitDefault:  90 * time.Second,
		SessionReconnectGrace: 2 * time.Minute,
		SessionIdleTTL:        15 * time.Minute,
		SessionSweepInterval:  time.Minute,
		ActionQueueDepth:      32,
		ActionRatePerSecond:   5,
		ActionRateBurst:       10,
		MaxRequestSize:        1 << 20,
		ShutdownTimeout:       5 * time.Second,
	}

	srv, listener := initializeServer(cfg)

	done := make(chan struct{})
	go func() {
		sigChan, errChan := setupShutdownHandling()
		startServerAsync(srv, listener, errChan)

		go func() {
			time.Sleep(50 * time.Millisecond)
			sigChan <- syscall.SIGINT
		}()

		waitForShutdownSignal(sigChan, errChan)
		performGracefulShutdown(srv, listener, cfg.ShutdownTimeout)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Server lifecycle did not complete in time")
	}
}

// BenchmarkConfigureLogging benchmarks the logging configuration.
func BenchmarkConfigureLogging(b *testing.B) {
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(os.Stderr)

	for i := 0; i < b.N; i++ {
		configureLogging("info")
	}
}

// BenchmarkSetupShutdownHandling benchmarks shutdown handler setup.
func BenchmarkSetupShutdownHandling(b *testing.B) {
	for i := 0; i < b.N; i++ {
		sigChan, _ := setupShutdownHandling()
		signal.Stop(sigChan)
	}
}
