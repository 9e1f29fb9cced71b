// Package httpapi serves the health check, the pro pipeline webhooks
// and the document preview endpoint.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/globaltime"
)

const (
	webhookSecretHeader  = "X-Webhook-Secret"
	maxWebhookBodyBytes  = 1 << 20
	backgroundJobTimeout = 30 * time.Minute
)

// Options configures the HTTP server. Zero values fall back to
// defaults; an empty WebhookSecret leaves the webhook routes open.
type Options struct {
	Host            string
	Port            int
	AllowedOrigins  []string
	WebhookSecret   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ProRunner triggers the pro delivery pipeline. *digest.ProPipeline
// satisfies it.
type ProRunner interface {
	OnboardSubscriber(ctx context.Context, proSubscriptionID int64, periodDate time.Time) error
	RunDaily(ctx context.Context, periodDate time.Time) error
}

type documentSource interface {
	GetDocument(ctx context.Context, documentID int64) (*db.DocumentRow, error)
}

type Server struct {
	pool   *db.Pool
	docs   documentSource
	pro    ProRunner
	logger zerolog.Logger
	opts   Options
}

func NewServer(pool *db.Pool, pro ProRunner, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		pool:   pool,
		pro:    pro,
		logger: logger.With().Str("component", "httpapi").Logger(),
		opts: Options{
			Host:            host,
			Port:            port,
			AllowedOrigins:  origins,
			WebhookSecret:   strings.TrimSpace(opts.WebhookSecret),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) documentStore() documentSource {
	if s.docs != nil {
		return s.docs
	}
	return s.pool
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", webhookSecretHeader},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.GET("/documents/:document_id/preview", s.handleDocumentPreview)

	hooks := e.Group("/webhooks", s.requireWebhookSecret())
	hooks.POST("/pro-onboard", s.handleProOnboard)
	hooks.POST("/pro-digest", s.handleProDigest)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("signal server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("signal server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

// requireWebhookSecret rejects webhook calls whose X-Webhook-Secret
// header does not match the configured secret. With no secret
// configured it passes everything through.
func (s *Server) requireWebhookSecret() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			secret := s.opts.WebhookSecret
			if secret == "" {
				return next(c)
			}
			provided := c.Request().Header.Get(webhookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				return fail(c, http.StatusUnauthorized, "Invalid webhook secret", nil)
			}
			return next(c)
		}
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.pool.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("health ping failed")
		return internalError(c, "Database unreachable")
	}
	return success(c, map[string]any{
		"service": "signal",
		"time":    globaltime.UTC(),
	})
}

// runInBackground detaches the webhook-triggered pipeline work from the
// request so the caller gets its 202 immediately.
func (s *Server) runInBackground(job string, run func(ctx context.Context) error) {
	logger := s.logger.With().Str("job", job).Logger()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundJobTimeout)
		defer cancel()
		if err := run(ctx); err != nil {
			logger.Error().Err(err).Msg("background job failed")
			return
		}
		logger.Info().Msg("background job finished")
	}()
}

func decodeJSON(c echo.Context, dst any) error {
	body := c.Request().Body
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(body, maxWebhookBodyBytes))
	if err := dec.Decode(dst); err != nil {
		// An empty body leaves dst zeroed, which every payload here
		// treats as "use the defaults".
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("body is not valid JSON")
	}
	if dec.More() {
		return fmt.Errorf("unexpected content after JSON body")
	}
	return nil
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
