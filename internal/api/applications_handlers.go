package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hireflow/internal/applications"
	"hireflow/internal/common/auth"
	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/models"
)

type access int

const (
	byApplicant access = 1 << iota
	byEmployer
)

// listApplications lists the caller's own applications, or with
// ?view=employer the applications to the caller's postings.
func (s *Server) listApplications(c *gin.Context) {
	f := applications.Filter{
		Status:       c.Query("status"),
		Company:      c.Query("company"),
		JobPostingID: c.Query("jobId"),
		Search:       c.Query("search"),
	}
	if employerView(c) {
		f.CreatorID = auth.UserID(c)
	} else {
		f.ApplicantID = auth.UserID(c)
	}
	var err error
	if f.Page, err = intQuery(c, "page"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := s.deps.Applications.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) getApplication(c *gin.Context) {
	app, ok := s.application(c, byApplicant|byEmployer)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, app)
}

// application loads :id and checks the caller may act on it as one of
// who. The employer is the creator of the application's job posting.
func (s *Server) application(c *gin.Context, who access) (*models.Application, bool) {
	id := c.Param("id")
	app, err := s.deps.Applications.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	user := auth.UserID(c)
	if who&byApplicant != 0 && app.ApplicantID == user {
		return app, true
	}
	if who&byEmployer != 0 && app.JobPosting != nil && app.JobPosting.CreatorID != "" && app.JobPosting.CreatorID == user {
		return app, true
	}
	respondError(c, apperrors.NewAccessDeniedError("application "+id))
	return nil, false
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	if _, ok := s.application(c, byEmployer); !ok {
		return
	}
	app, err := s.deps.Applications.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type shortlistRequest struct {
	Shortlisted *bool `json:"shortlisted" binding:"required"`
}

func (s *Server) setShortlisted(c *gin.Context) {
	var req shortlistRequest
	if !bind(c, &req) {
		return
	}
	if _, ok := s.application(c, byEmployer); !ok {
		return
	}
	app, err := s.deps.Applications.SetShortlisted(c.Request.Context(), c.Param("id"), *req.Shortlisted)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) withdraw(c *gin.Context) {
	if _, ok := s.application(c, byApplicant); !ok {
		return
	}
	app, err := s.deps.Applications.Withdraw(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
