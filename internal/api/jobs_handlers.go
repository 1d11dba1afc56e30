package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"hireflow/internal/common/auth"
	"hireflow/internal/jobs"
	"hireflow/internal/models"
)

// PostingService manages job postings for the signed-in user.
type PostingService interface {
	Get(ctx context.Context, userID, id string) (*models.JobPosting, error)
	Create(ctx context.Context, userID string, in models.JobPostingInput) (*models.JobPosting, error)
	Update(ctx context.Context, userID, id string, in models.JobPostingInput) (*models.JobPosting, error)
	Archive(ctx context.Context, userID, id string) (*models.JobPosting, error)
	Restore(ctx context.Context, userID, id string) (*models.JobPosting, error)
	List(ctx context.Context, userID string, mine bool, f jobs.ListFilter) (*models.JobPostingPage, error)
	Stats(ctx context.Context, userID string) (*models.JobStats, error)
}

// listJobs shows active postings; ?view=employer shows the caller's own.
func (s *Server) listJobs(c *gin.Context) {
	f := jobs.ListFilter{Status: c.Query("status"), Search: c.Query("search")}
	var err error
	if f.Page, err = intQuery(c, "page"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		badRequest(c, err.Error())
		return
	}
	page, err := s.deps.Postings.List(c.Request.Context(), auth.UserID(c), employerView(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getJob(c *gin.Context) {
	job, err := s.deps.Postings.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) createJob(c *gin.Context) {
	var in models.JobPostingInput
	if !bind(c, &in) {
		return
	}
	job, err := s.deps.Postings.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (s *Server) updateJob(c *gin.Context) {
	var in models.JobPostingInput
	if !bind(c, &in) {
		return
	}
	job, err := s.deps.Postings.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) archiveJob(c *gin.Context) {
	job, err := s.deps.Postings.Archive(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) restoreJob(c *gin.Context) {
	job, err := s.deps.Postings.Restore(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) jobStats(c *gin.Context) {
	stats, err := s.deps.Postings.Stats(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func employerView(c *gin.Context) bool {
	return c.Query("view") == "employer"
}
