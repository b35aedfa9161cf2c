package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vytraty/internal/cache"
	"vytraty/internal/log"
	"vytraty/internal/services"
	"vytraty/internal/state"
)

// Server is the JSON API fronting the per-user stores. It embeds http.Server
// so callers get ListenAndServe for free and Shutdown stops the background
// goroutines along with the listener.
type Server struct {
	http.Server

	transactions    *services.TransactionService
	regularPayments *services.RegularPaymentService
	settings        *services.SettingsService
	sync            *services.SyncService
	states          *state.Manager
	logger          *log.Logger
	botToken        string

	rateLimiter *rateLimiter

	summaryCache *cache.LRUCache[summaryResponse]
	caches       *cache.Manager

	shutdownOnce sync.Once
}

// Services bundles the orchestration layer the handlers dispatch into.
type Services struct {
	Transactions    *services.TransactionService
	RegularPayments *services.RegularPaymentService
	Settings        *services.SettingsService
	Sync            *services.SyncService
}

// Options carries the optional knobs for NewServer.
type Options struct {
	// BotToken enables Telegram initData verification. Empty means every
	// data route answers 401 unless the request carries the user_id
	// query fallback.
	BotToken string
	// SummaryTTL bounds how stale a cached summary may be. Zero disables
	// the cache.
	SummaryTTL time.Duration
}

// Simple in-memory rate limiter, per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries idle for over 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset the counter once a full minute has passed.
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Up to 60 mutating requests per minute.
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svcs Services, states *state.Manager, logger *log.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		transactions:    svcs.Transactions,
		regularPayments: svcs.RegularPayments,
		settings:        svcs.Settings,
		sync:            svcs.Sync,
		states:          states,
		logger:          logger.WithComponent(log.ComponentHTTP),
		botToken:        opts.BotToken,
		rateLimiter:     newRateLimiter(),
	}

	if opts.SummaryTTL > 0 {
		s.summaryCache = cache.NewLRUCache[summaryResponse](200, opts.SummaryTTL)
		s.caches = cache.NewManager()
		s.caches.Register(s.summaryCache)
		s.caches.StartCleanup(10 * time.Minute)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.withUser(s.handleSummary)))
	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.withUser(s.handleListTransactions)))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.withUser(s.handleCreateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.withUser(s.handleDeleteTransaction)))
	mux.HandleFunc("POST /api/sync", s.withMiddleware(s.withUser(s.handleSync)))
	mux.HandleFunc("GET /api/regular-payments", s.withMiddleware(s.withUser(s.handleListRegularPayments)))
	mux.HandleFunc("POST /api/regular-payments", s.withMiddleware(s.withUser(s.handleCreateRegularPayment)))
	mux.HandleFunc("DELETE /api/regular-payments/{id}", s.withMiddleware(s.withUser(s.handleDeleteRegularPayment)))
	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.withUser(s.handleListCategories)))
	mux.HandleFunc("GET /api/settings", s.withMiddleware(s.withUser(s.handleGetSettings)))
	mux.HandleFunc("PATCH /api/settings", s.withMiddleware(s.withUser(s.handleUpdateSettings)))
	mux.HandleFunc("GET /api/period", s.withMiddleware(s.withUser(s.handleGetPeriod)))
	mux.HandleFunc("POST /api/period/previous", s.withMiddleware(s.withUser(s.handlePreviousPeriod)))
	mux.HandleFunc("POST /api/period/next", s.withMiddleware(s.withUser(s.handleNextPeriod)))
	mux.HandleFunc("POST /api/period", s.withMiddleware(s.withUser(s.handleSetPeriod)))

	return s
}

// Shutdown stops the listener, the rate limiter and the cache janitor.
// Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.caches != nil {
			s.caches.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		// Rate-limit mutating requests only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.InfoContext(ctx, "request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// withUser resolves and verifies the requesting Telegram user. The signed
// initData header is authoritative; the user_id query parameter is a
// development fallback only accepted when no header is present.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if initData := r.Header.Get("X-Telegram-Init-Data"); initData != "" {
			userID, err := VerifyInitData(initData, s.botToken)
			if err != nil {
				s.logger.WarnContext(r.Context(), "init data rejected", log.FieldError, err)
				writeError(w, http.StatusUnauthorized, "invalid telegram init data")
				return
			}
			next(w, r, userID)
			return
		}

		if userID := r.URL.Query().Get("user_id"); userID != "" {
			next(w, r, userID)
			return
		}

		writeError(w, http.StatusUnauthorized, "missing telegram init data")
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails.
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
