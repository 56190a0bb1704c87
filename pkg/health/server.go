package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rx3lixir/storefront-client/pkg/logger"
)

// Status — состояние проверяемого компонента
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// CheckResult — результат одной проверки
type CheckResult struct {
	Status  Status         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Checker выполняет одну проверку здоровья
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc адаптирует функцию к интерфейсу Checker
type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Server отдает состояние сервиса по HTTP
type Server struct {
	log     logger.Logger
	name    string
	version string
	addr    string
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker

	httpServer *http.Server
}

// Option настраивает Server
type Option func(*Server)

// WithServiceName задает имя сервиса в ответе
func WithServiceName(name string) Option {
	return func(s *Server) { s.name = name }
}

// WithVersion задает версию сервиса в ответе
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithAddress задает адрес прослушивания
func WithAddress(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithTimeout задает таймаут выполнения всех проверок
func WithTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.timeout = timeout }
}

// NewServer создает health-сервер
func NewServer(log logger.Logger, opts ...Option) *Server {
	s := &Server{
		log:      log,
		name:     "service",
		version:  "dev",
		addr:     ":8082",
		timeout:  5 * time.Second,
		checkers: make(map[string]Checker),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register добавляет именованную проверку
func (s *Server) Register(name string, checker Checker) {
	s.mu.Lock()
	s.checkers[name] = checker
	s.mu.Unlock()
}

// Start запускает HTTP-сервер и блокируется до его остановки
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	s.log.Info("Health server is listening", "address", s.addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown останавливает HTTP-сервер
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// response — тело ответа /health
type response struct {
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Status  Status                 `json:"status"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for name, c := range s.checkers {
		checkers[name] = c
	}
	s.mu.RUnlock()

	resp := response{
		Service: s.name,
		Version: s.version,
		Status:  StatusUp,
		Checks:  make(map[string]CheckResult, len(checkers)),
	}

	for name, checker := range checkers {
		result := checker.Check(ctx)
		resp.Checks[name] = result
		if result.Status == StatusDown {
			resp.Status = StatusDown
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == StatusDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("Failed to encode health response", "error", err)
	}
}
