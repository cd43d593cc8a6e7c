// Package web exposes a session over a JSON HTTP API with a server-sent event stream.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alanbriolat/video-harvester/async"
	"github.com/alanbriolat/video-harvester/database"
	"github.com/alanbriolat/video-harvester/internal/session"
)

const DefaultListenAddr = "127.0.0.1:8080"

// HistoryLister is the part of the download history the API can show.
type HistoryLister interface {
	Recent(limit int) ([]database.HistoryRecord, error)
}

type Server struct {
	session *session.Session
	history HistoryLister
	log     *zap.SugaredLogger
	engine  *gin.Engine
}

// New builds the API for s. history may be nil, in which case /api/history is empty.
func New(s *session.Session, history HistoryLister) *Server {
	server := &Server{
		session: s,
		history: history,
		log:     zap.S().Named("web"),
		engine:  gin.New(),
	}
	server.engine.Use(gin.Recovery(), server.logRequests)
	server.routes()
	return server
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/status", s.getStatus)
	api.POST("/discover", s.postDiscover)
	api.GET("/links", s.getLinks)
	api.PUT("/selection", s.putSelection)
	api.POST("/process", s.postProcess)
	api.GET("/jobs", s.getJobs)
	api.GET("/jobs/:id", s.getJob)
	api.PUT("/jobs/:id/quality", s.putJobQuality)
	api.POST("/jobs/:id/download", s.postJobDownload)
	api.POST("/jobs/:id/retry", s.postJobRetry)
	api.GET("/jobs/:id/file", s.getJobFile)
	api.POST("/download-all", s.postDownloadAll)
	api.GET("/history", s.getHistory)
	api.GET("/events", s.getEvents)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run serves on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Infof("listening on http://%s", addr)
	errCh := async.Run(httpServer.ListenAndServe)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debugw("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}
