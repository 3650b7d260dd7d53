package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"runeforge/pkg/arbiter"
	"runeforge/pkg/broker"
	"runeforge/pkg/config"
	"runeforge/pkg/persistence"
	"runeforge/pkg/principal"
	"runeforge/pkg/sim"
	"runeforge/pkg/transport"
	"runeforge/pkg/validation"
)

// Server is the main server instance: it wires the Connection Broker to
// an HTTP listener and carries the operational surface (health, metrics,
// profiling, rate limiting) around it.
type Server struct {
	fileServer http.Handler

	config    *config.Config
	broker    *broker.Broker
	upgrader  *transport.Upgrader
	validator *validation.InputValidator

	done chan struct{}

	Addr net.Addr

	healthChecker *HealthChecker
	metrics       *Metrics
	profiling     *ProfilingServer
	perfMonitor   *PerformanceMonitor
	perfAlerter   *PerformanceAlerter
	rateLimiter   *RateLimiter
}

// New builds a Server from cfg: it loads or mints the principal-decoding
// key, opens the character persistence store, and assembles the
// Connection Broker before wiring up the ambient HTTP concerns (metrics,
// health, profiling, rate limiting).
func New(cfg *config.Config) (*Server, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "New",
		"package":  "server",
	})
	logger.Debug("entering New")

	decoder, err := newPrincipalDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build principal decoder: %w", err)
	}

	fileStore, err := persistence.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	characters := persistence.NewCharacterStore(fileStore)

	arb := arbiter.New(nil)

	brokerCfg := broker.Config{
		DefaultMaxPlayers:   cfg.MaxPlayersDefault,
		DefaultMonsterCount: cfg.MonsterCountDefault,
		TurnTimeLimit:       cfg.TurnTimeLimitDefault,
		ReconnectGrace:      cfg.SessionReconnectGrace,
		ReconnectWindow:     cfg.SessionReconnectWindow,
		QueueDepth:          cfg.ActionQueueDepth,
		IdleTTL:             cfg.SessionIdleTTL,
		SweepInterval:       cfg.SessionSweepInterval,
		ActionRatePerSecond: cfg.ActionRatePerSecond,
		ActionRateBurst:     cfg.ActionRateBurst,
	}

	validator := validation.NewInputValidator(cfg.MaxRequestSize)
	b := broker.New(decoder, arb, characters, sim.DefaultSpawnMonsters(cfg.MonsterCountDefault), nil, brokerCfg, validator)

	server := &Server{
		fileServer: http.FileServer(http.Dir(cfg.WebDir)),
		config:     cfg,
		broker:     b,
		upgrader:   transport.NewUpgrader(cfg.OriginAllowed, cfg.MaxRequestSize),
		validator:  validator,
		done:       make(chan struct{}),
	}

	server.metrics = NewMetrics()
	server.healthChecker = NewHealthChecker(server)
	if err := InitTimeoutConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize timeout configuration: %w", err)
	}

	server.profiling = NewProfilingServer(ProfilingConfig{
		Enabled: cfg.EnableProfiling || cfg.EnableDevMode,
		Path:    "/debug/pprof",
	})

	server.perfMonitor = NewPerformanceMonitor(server.metrics, cfg.MetricsInterval)

	if cfg.AlertingEnabled {
		thresholds := DefaultAlertThresholds()
		thresholds.CheckInterval = cfg.AlertingInterval
		server.perfAlerter = NewPerformanceAlerter(thresholds, &LogAlertHandler{}, server.metrics)
	}

	if cfg.RateLimitEnabled {
		server.rateLimiter = NewRateLimiter(cfg)
	}

	go server.perfMonitor.Start()
	if server.perfAlerter != nil {
		go server.perfAlerter.Start(context.Background())
	}

	logger.Info("initialized new server")
	logger.Debug("exiting New")
	return server, nil
}

// newPrincipalDecoder builds the Decoder used to authenticate incoming
// connections. Outside dev mode cfg must carry a real Ed25519 public
// key; in dev mode, with no key configured, an ephemeral key pair is
// minted so the server can still start (any client presenting a token
// signed by that ephemeral key will verify, nothing else will).
func newPrincipalDecoder(cfg *config.Config) (*principal.Decoder, error) {
	key, ok := cfg.AuthPublicKey()
	if !ok {
		if !cfg.EnableDevMode {
			return nil, fmt.Errorf("auth public key is required outside dev mode")
		}
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral dev-mode key: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "newPrincipalDecoder",
			"package":  "server",
		}).Warn("no auth public key configured, minted an ephemeral dev-mode key pair")
		key = pub
	}

	return principal.NewDecoder(cfg.AuthIssuer, cfg.AuthAudience, key, nil)
}

// ServeHTTP routes static asset requests to the configured web
// directory; the WebSocket endpoint is registered separately in
// websocket.go and operational endpoints (health, metrics, pprof) are
// mounted directly on the serve mux in Serve.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.fileServer.ServeHTTP(w, r)
}

// Serve builds the middleware-wrapped handler and blocks serving HTTP
// on listener until it errors or the listener closes.
func (s *Server) Serve(listener net.Listener) error {
	logger := logrus.WithFields(logrus.Fields{
		"function": "Serve",
		"address":  listener.Addr().String(),
	})
	s.Addr = listener.Addr()
	logger.Info("starting server")

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.healthChecker.HealthHandler)
	mux.HandleFunc("/ready", s.healthChecker.ReadinessHandler)
	mux.HandleFunc("/live", s.healthChecker.LivenessHandler)
	mux.Handle("/metrics", s.metrics.GetHandler())
	mux.Handle("/", s)

	var handler http.Handler = mux

	handler = http.TimeoutHandler(handler, s.config.RequestTimeout, "request timed out")
	if s.rateLimiter != nil {
		handler = RateLimitingMiddleware(s.rateLimiter)(handler)
	}
	handler = CORSMiddleware(s.config.AllowedOrigins)(handler)
	handler = s.metrics.MetricsMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	if s.profiling.config.Enabled {
		go func() {
			if err := s.profiling.StartProfiling(fmt.Sprintf(":%d", s.profilingPort())); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("profiling server failed")
			}
		}()
	}

	srv := &http.Server{Handler: handler}

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("server failed")
		return err
	}

	logger.Info("server stopped")
	return nil
}

func (s *Server) profilingPort() int {
	if s.config.ProfilingPort != 0 {
		return s.config.ProfilingPort
	}
	return s.config.ServerPort + 1
}

// Shutdown first closes done, so checkServer reports the server as
// shutting down, then stops the broker, rate limiter, performance
// monitor, alerter and profiling server in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := logrus.WithField("function", "Shutdown")
	logger.Info("beginning graceful server shutdown")

	close(s.done)

	s.broker.Stop()
	logger.Debug("stopped connection broker")

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
		logger.Debug("stopped rate limiter cleanup")
	}

	s.perfMonitor.Stop()
	logger.Debug("stopped performance monitor")

	if s.perfAlerter != nil {
		s.perfAlerter.Stop()
		logger.Debug("stopped performance alerter")
	}

	if err := s.profiling.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("error shutting down profiling server")
	} else {
		logger.Debug("stopped profiling server")
	}

	logger.Info("graceful server shutdown completed")
	return nil
}
