// Package server exposes question generation over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/platform/logger"
	"github.com/abhisek/quizgen/internal/questiongen"
)

// Deps wires the server to the pipeline.
type Deps struct {
	Provider     llm.Provider
	Generation   questiongen.Config
	Orchestrator *bulk.Orchestrator
	Log          *logger.Logger

	CORSOrigins []string
	ServiceName string
}

type Server struct {
	Engine *gin.Engine

	provider llm.Provider
	genCfg   questiongen.Config
	orch     *bulk.Orchestrator
	log      *logger.Logger
}

func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	s := &Server{
		provider: d.Provider,
		genCfg:   d.Generation,
		orch:     d.Orchestrator,
		log:      d.Log,
	}
	s.Engine = s.newRouter(d)
	return s
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests for up to shutdownGrace.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

const shutdownGrace = 30 * time.Second
