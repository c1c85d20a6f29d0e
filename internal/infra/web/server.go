// File: internal/infra/web/server.go
package web

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/usecase"
)

// Server exposes the subscription config-link endpoint clients poll, plus
// health and metrics.
type Server struct {
	subUC      usecase.SubscriptionUseCase
	linkSecret string
	log        *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(port int, subUC usecase.SubscriptionUseCase, linkSecret string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	s := &Server{
		subUC:      subUC,
		linkSecret: linkSecret,
		log:        &l,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/sub/{token}", s.handleSub)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("Starting web server")
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleSub serves the v2ray link list for one subscription. The token is a
// signed wrapper around the subscription id; anything that fails to verify is
// a plain 404 so the endpoint leaks nothing about valid ids.
func (s *Server) handleSub(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	subToken, err := ParseLinkToken(s.linkSecret, token)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sub, err := s.subUC.FindByToken(r.Context(), subToken)
	if err != nil || !sub.Active {
		http.NotFound(w, r)
		return
	}
	links, err := s.subUC.Links(r.Context(), sub.ID)
	if err != nil || len(links) == 0 {
		http.NotFound(w, r)
		return
	}

	body := strings.Join(links, "\n")
	// most clients expect the base64 form of the link list
	if r.URL.Query().Get("plain") == "" {
		body = base64.StdEncoding.EncodeToString([]byte(body))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
