// Package rest is a JSON viewer over the metamodel and the runtime: it lists specifications,
// renders objects addressed by memento, evaluates member consent and invokes actions on behalf of
// the authenticated actor.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/app"
)

// Config holds the listener settings
type Config struct {
	Addr              string
	APIPrefix         string
	JWTSecret         string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// ConfigFrom derives the server settings of a
func ConfigFrom(a *app.App) Config {
	return Config{
		Addr:              a.Config.Server.Addr(),
		APIPrefix:         a.Config.Server.APIPrefix,
		JWTSecret:         a.Config.Server.JWTSecret,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Server serves the REST viewer of one app
type Server struct {
	app    *app.App
	config Config
	auth   *Authenticator
	hub    *Hub
	logger *zap.Logger
	router chi.Router
}

// New creates the server and its routes
func New(a *app.App, cfg Config) *Server {
	s := &Server{
		app:    a,
		config: cfg,
		auth:   NewAuthenticator(cfg.JWTSecret, DefaultTokenTTL),
		logger: a.Logger.Named("rest"),
	}
	s.hub = NewHub(s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	api := chi.NewRouter()
	api.Use(middleware.RequestID)
	api.Use(RequestLogger(s.logger))
	api.Use(Recovery(s.logger))
	api.Use(s.auth.Middleware)
	api.Use(Locale(s.app.Translations))

	api.Get("/specs", s.listSpecs)
	api.Route("/specs/{name}", func(r chi.Router) {
		r.Get("/", s.describeSpec)
		r.Get("/instances", s.listInstances)
		r.Get("/members/{member}/facets", s.memberFacets)
	})
	api.Get("/services", s.listServices)
	api.Route("/objects/{memento}", func(r chi.Router) {
		r.Get("/", s.getObject)
		r.Get("/members/{member}/consent", s.memberConsent)
		r.Post("/actions/{action}/invoke", s.invokeAction)
	})
	api.Handle("/live", s.hub)

	if s.config.APIPrefix == "" {
		return api
	}
	root := chi.NewRouter()
	root.Mount(s.config.APIPrefix, api)
	return root
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the live update hub
func (s *Server) Hub() *Hub { return s.hub }

// Authenticator returns the token issuer of the server
func (s *Server) Authenticator() *Authenticator { return s.auth }

// Serve accepts connections on l until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", l.Addr().String()), zap.Bool("auth", s.auth.Enabled()))
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, l)
}
