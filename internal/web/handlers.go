package web

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alanbriolat/video-harvester/database"
	"github.com/alanbriolat/video-harvester/internal/crawl"
	"github.com/alanbriolat/video-harvester/internal/session"
)

const defaultHistoryLimit = 50

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func statusForError(err error) int {
	var statusErr *crawl.StatusError
	switch {
	case errors.Is(err, session.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, session.ErrQualityUnavailable),
		errors.Is(err, session.ErrUnknownLink),
		errors.Is(err, session.ErrNothingSelected),
		errors.Is(err, crawl.ErrEmptyURL):
		return http.StatusBadRequest
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) abort(c *gin.Context, err error) {
	var validation *ValidationResult
	if errors.As(err, &validation) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: validation.Error(), Fields: validation.Fields()})
		return
	}
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"busy":      s.session.Busy(),
		"base_url":  s.session.BaseURL(),
		"links":     len(s.session.Links()),
		"selection": len(s.session.Selection()),
		"jobs":      len(s.session.ListJobs()),
	})
}

type discoverRequest struct {
	URL    string `json:"url"`
	Marker string `json:"marker"`
}

func (s *Server) postDiscover(c *gin.Context) {
	var req discoverRequest
	if !s.bind(c, &req) {
		return
	}
	var v ValidationResult
	validateURL(&v, "url", req.URL)
	if !v.IsOk() {
		s.abort(c, &v)
		return
	}
	links, err := s.session.Discover(c.Request.Context(), req.URL, session.DiscoverOptions{Marker: req.Marker})
	if err != nil {
		s.abort(c, err)
		return
	}
	if links == nil {
		links = []session.DiscoveredLink{}
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (s *Server) getLinks(c *gin.Context) {
	links := s.session.Links()
	if links == nil {
		links = []session.DiscoveredLink{}
	}
	c.JSON(http.StatusOK, gin.H{"base_url": s.session.BaseURL(), "links": links})
}

type selectionRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) putSelection(c *gin.Context) {
	var req selectionRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.session.Select(req.URLs); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"urls": s.session.Selection()})
}

type processRequest struct {
	BaseName   *string  `json:"base_name"`
	BaseNumber *int     `json:"base_number"`
	URLs       []string `json:"urls"`
}

func (r *processRequest) validate() *ValidationResult {
	var v ValidationResult
	if r.BaseName != nil && strings.TrimSpace(*r.BaseName) == "" {
		v.AddError("base_name", "must not be empty")
	}
	if r.BaseNumber != nil && *r.BaseNumber < 1 {
		v.AddError("base_number", "must be at least 1")
	}
	for i, u := range r.URLs {
		validateURL(&v, "urls["+strconv.Itoa(i)+"]", u)
	}
	return &v
}

func (s *Server) postProcess(c *gin.Context) {
	var req processRequest
	if !s.bind(c, &req) {
		return
	}
	if v := req.validate(); !v.IsOk() {
		s.abort(c, v)
		return
	}
	opts := session.ProcessOptions{URLs: req.URLs}
	if req.BaseName != nil {
		opts.BaseName = strings.TrimSpace(*req.BaseName)
	}
	if req.BaseNumber != nil {
		opts.BaseNumber = *req.BaseNumber
	}
	jobs, err := s.session.Process(c.Request.Context(), opts)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) getJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.session.ListJobs()})
}

func jobID(c *gin.Context) session.JobID {
	return session.JobID(c.Param("id"))
}

func (s *Server) getJob(c *gin.Context) {
	j, err := s.session.GetJob(jobID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

type qualityRequest struct {
	Quality string `json:"quality" binding:"required"`
}

func (s *Server) putJobQuality(c *gin.Context) {
	var req qualityRequest
	if !s.bind(c, &req) {
		return
	}
	j, err := s.session.ChooseQuality(jobID(c), req.Quality)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *Server) postJobDownload(c *gin.Context) {
	if err := s.session.StartDownloadJob(jobID(c)); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

func (s *Server) postJobRetry(c *gin.Context) {
	j, err := s.session.Retry(c.Request.Context(), jobID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *Server) getJobFile(c *gin.Context) {
	j, err := s.session.GetJob(jobID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	if j.Status != session.JobStatusCompleted {
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: "job is not completed"})
		return
	}
	if _, err := os.Stat(j.OutputPath); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "file not found"})
		return
	}
	c.FileAttachment(j.OutputPath, filepath.Base(j.OutputPath))
}

func (s *Server) postDownloadAll(c *gin.Context) {
	if err := s.session.StartDownloadAll(); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

func (s *Server) getHistory(c *gin.Context) {
	records := []database.HistoryRecord{}
	if s.history != nil {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
		if err != nil || limit < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		recent, err := s.history.Recent(limit)
		if err != nil {
			s.abort(c, err)
			return
		}
		records = append(records, recent...)
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}
