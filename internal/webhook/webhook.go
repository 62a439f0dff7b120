package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mlaeubli/tasksync/internal/activation"
	"github.com/mlaeubli/tasksync/internal/changes"
	"github.com/mlaeubli/tasksync/internal/config"
)

// Runner executes one sync for a resolved commit range. Implemented by
// sync.Engine.
type Runner interface {
	RunRange(ctx context.Context, rng changes.Range) error
}

// pushEvent represents the relevant fields of a GitHub push webhook
type pushEvent struct {
	Ref        string `json:"ref"`
	Before     string `json:"before"`
	After      string `json:"after"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// Server accepts GitHub push webhooks and triggers task syncs for the
// commit range each event carries.
type Server struct {
	cfg    *config.Config
	runner Runner
	logger *slog.Logger
	secret []byte

	syncMu      sync.Mutex     // guards syncRunning and pending
	syncRunning bool           // whether a sync is currently in progress
	pending     *changes.Range // range queued behind the running sync

	debounce *debouncer
}

// debouncer coalesces bursts of webhook deliveries
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	delay    time.Duration
	callback func()
}

// NewServer creates a new webhook server
func NewServer(cfg *config.Config, runner Runner, logger *slog.Logger) (*Server, error) {
	secret, err := os.ReadFile(cfg.WebhookSecretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook secret: %w", err)
	}

	return &Server{
		cfg:      cfg,
		runner:   runner,
		logger:   logger,
		secret:   []byte(strings.TrimSpace(string(secret))),
		debounce: &debouncer{delay: 2 * time.Second},
	}, nil
}

// Start runs the webhook HTTP server until the context is cancelled.
// It serves on a systemd-activated socket when one is passed,
// otherwise on the configured listen address.
func (s *Server) Start(ctx context.Context) error {
	listener, err := activation.Listener()
	if err != nil {
		return fmt.Errorf("socket activation check failed: %w", err)
	}
	if listener == nil {
		listener, err = net.Listen("tcp", s.cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebhook)

	server := &http.Server{
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server starting", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleWebhook handles incoming GitHub webhook requests
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.logger.Warn("rejecting non-POST request", "method", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MB limit
	if err != nil {
		s.logger.Error("failed to read request body", "error", err)
		http.Error(w, "Failed to read body", http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	signature := r.Header.Get("X-Hub-Signature-256")
	if !s.verifySignature(body, signature) {
		s.logger.Warn("rejecting request with invalid signature")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType != "push" {
		s.logger.Info("ignoring non-push event", "event", eventType)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "Event type not configured for sync\n")
		return
	}

	var ev pushEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.logger.Error("failed to parse webhook payload", "error", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	if !s.isRefAllowed(ev.Ref) {
		s.logger.Info("ignoring disallowed ref", "ref", ev.Ref)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "Ref not configured for sync\n")
		return
	}

	s.logger.Info("webhook accepted",
		"ref", ev.Ref,
		"before", ev.Before,
		"after", ev.After,
		"repo", ev.Repository.FullName)

	rng := changes.Range{Before: ev.Before, After: ev.After}
	s.debounce.trigger(func() {
		s.performSync(context.Background(), rng)
	})

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Sync triggered\n")
}

// verifySignature verifies the GitHub webhook HMAC signature
func (s *Server) verifySignature(body []byte, signature string) bool {
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

// isRefAllowed checks if the ref is in the allowed list
func (s *Server) isRefAllowed(ref string) bool {
	if len(s.cfg.AllowedRefs) == 0 {
		return true // no filter configured
	}
	for _, allowed := range s.cfg.AllowedRefs {
		if ref == allowed {
			return true
		}
	}
	return false
}

// performSync runs one sync with single-flight semantics. When a sync
// is already in progress the newest range is queued; at most one
// pending run is kept so webhook bursts cannot pile up goroutines.
func (s *Server) performSync(ctx context.Context, rng changes.Range) {
	s.syncMu.Lock()
	if s.syncRunning {
		s.pending = &rng
		s.syncMu.Unlock()
		s.logger.Info("sync already in progress, queuing pending re-run")
		return
	}
	s.syncRunning = true
	s.syncMu.Unlock()

	current := rng
	for {
		if err := s.runner.RunRange(ctx, current); err != nil {
			s.logger.Error("sync failed", "error", err)
		}

		s.syncMu.Lock()
		if s.pending == nil {
			s.syncRunning = false
			s.syncMu.Unlock()
			return
		}
		current = *s.pending
		s.pending = nil
		s.syncMu.Unlock()

		s.logger.Info("re-running sync for pending range")
	}
}

// trigger schedules the callback to run after the debounce delay
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}
