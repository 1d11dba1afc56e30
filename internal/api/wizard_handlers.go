package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hireflow/internal/common/auth"
	"hireflow/internal/wizard"
)

type mountRequest struct {
	Company string `json:"company"`
	JobID   string `json:"jobId"`
}

// wizardResponse is the view plus the session id.
type wizardResponse struct {
	ID string `json:"id"`
	wizard.View
}

func (s *Server) questions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":   s.deps.Catalog.Version,
		"questions": s.deps.Catalog.Render(c.Query("company")),
	})
}

func (s *Server) mountWizard(c *gin.Context) {
	var req mountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user := auth.UserID(c)

	mount, err := wizard.ResolveMount(c.Request.Context(), s.deps.Jobs, req.Company, req.JobID, user)
	if err != nil {
		respondError(c, err)
		return
	}

	log := s.logger.WithFields(map[string]interface{}{"applicantId": user, "company": mount.Company})
	opts := []wizard.Option{
		wizard.WithLogger(log),
		wizard.WithCatalog(s.deps.Catalog),
		wizard.WithMaxResumeBytes(s.cfg.MaxResumeBytes),
		wizard.WithHooks(wizard.Hooks{
			OnComplete: func(r wizard.Receipt) {
				log.Info("application complete", map[string]interface{}{"applicationId": r.ApplicationID})
			},
			OnError: func(msg string) {
				log.Warn("application error shown", map[string]interface{}{"message": msg})
			},
		}),
	}
	if s.cfg.RedirectDelay > 0 {
		opts = append(opts, wizard.WithRedirectDelay(s.cfg.RedirectDelay))
	}

	ctrl, err := wizard.New(mount, s.deps.Transport, opts...)
	if err != nil {
		respondError(c, err)
		return
	}
	id := s.deps.Sessions.Add(user, ctrl)
	c.JSON(http.StatusCreated, wizardResponse{ID: id, View: ctrl.View()})
}

// session resolves :id for the caller or writes the error.
func (s *Server) session(c *gin.Context) (*wizard.Controller, bool) {
	ctrl, err := s.deps.Sessions.Get(c.Param("id"), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ctrl, true
}

func (s *Server) viewWizard(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wizardResponse{ID: c.Param("id"), View: ctrl.View()})
}

func (s *Server) abandonWizard(c *gin.Context) {
	if err := s.deps.Sessions.Remove(c.Param("id"), auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ==========================
// Stage edits
// ==========================

type myInformationRequest struct {
	GivenName          *string         `json:"givenName"`
	MiddleName         *string         `json:"middleName"`
	FamilyName         *string         `json:"familyName"`
	Suffix             *string         `json:"suffix"`
	Email              *string         `json:"email"`
	Phone              *wizard.Phone   `json:"phone"`
	Address            *addressPatch   `json:"address"`
	PreviouslyEmployed *string         `json:"previouslyEmployed"`
	EmployeeID         *string         `json:"employeeId"`
	ManagerName        *string         `json:"managerName"`
}

// addressPatch changes only the address lines present in the request.
type addressPatch struct {
	Street         *string `json:"street"`
	AdditionalLine *string `json:"additionalLine"`
	City           *string `json:"city"`
	Province       *string `json:"province"`
	PostalCode     *string `json:"postalCode"`
	CountryCode    *string `json:"countryCode"`
}

func (a addressPatch) apply(e *wizard.MyInformationEditor) {
	for _, f := range []struct {
		v   *string
		set func(string)
	}{
		{a.Street, e.SetStreet},
		{a.AdditionalLine, e.SetAdditionalLine},
		{a.City, e.SetCity},
		{a.Province, e.SetProvince},
		{a.PostalCode, e.SetPostalCode},
		{a.CountryCode, e.SetCountry},
	} {
		if f.v != nil {
			f.set(*f.v)
		}
	}
}

func (r myInformationRequest) apply(e *wizard.MyInformationEditor) error {
	if r.GivenName != nil {
		e.SetGivenName(*r.GivenName)
	}
	if r.MiddleName != nil {
		e.SetMiddleName(*r.MiddleName)
	}
	if r.FamilyName != nil {
		e.SetFamilyName(*r.FamilyName)
	}
	if r.Suffix != nil {
		if err := e.SetSuffix(*r.Suffix); err != nil {
			return err
		}
	}
	if r.Email != nil {
		e.SetEmail(*r.Email)
	}
	if r.Phone != nil {
		e.SetPhone(r.Phone.Type, r.Phone.CountryCode, r.Phone.Number)
	}
	if r.Address != nil {
		r.Address.apply(e)
	}
	if r.PreviouslyEmployed != nil {
		v, err := wizard.ParseYesNo(*r.PreviouslyEmployed)
		if err != nil {
			return err
		}
		e.SetPreviouslyEmployed(v)
	}
	if r.EmployeeID != nil {
		e.SetEmployeeID(*r.EmployeeID)
	}
	if r.ManagerName != nil {
		e.SetManagerName(*r.ManagerName)
	}
	return nil
}

type myExperienceRequest struct {
	WorkHistory      *[]wizard.WorkEntry      `json:"workHistory"`
	NoWorkExperience *bool                    `json:"noWorkExperience"`
	Education        *[]wizard.EducationEntry `json:"education"`
	Skills           *[]string                `json:"skills"`
	Websites         *[]string                `json:"websites"`
	LinkedInURL      *string                  `json:"linkedinUrl"`
}

func (r myExperienceRequest) apply(e *wizard.MyExperienceEditor) error {
	if r.WorkHistory != nil {
		e.ReplaceWorkHistory(*r.WorkHistory)
	}
	if r.NoWorkExperience != nil {
		e.SetNoWorkExperience(*r.NoWorkExperience)
	}
	if r.Education != nil {
		e.ReplaceEducation(*r.Education)
	}
	if r.Skills != nil {
		if err := e.ReplaceSkills(*r.Skills); err != nil {
			return err
		}
	}
	if r.Websites != nil {
		if err := e.SetWebsites(*r.Websites); err != nil {
			return err
		}
	}
	if r.LinkedInURL != nil {
		if err := e.SetLinkedIn(*r.LinkedInURL); err != nil {
			return err
		}
	}
	return nil
}

type applicationQuestionsRequest struct {
	Answers map[string]string `json:"answers"`
}

type voluntaryDisclosuresRequest struct {
	TermsAccepted *bool `json:"termsAccepted"`
}

func (s *Server) editStage(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	n, err := strconv.Atoi(c.Param("stage"))
	if err != nil || !wizard.Stage(n).Valid() {
		badRequest(c, fmt.Sprintf("unknown stage %q", c.Param("stage")))
		return
	}

	switch wizard.Stage(n) {
	case wizard.StageMyInformation:
		var req myInformationRequest
		if !bind(c, &req) {
			return
		}
		err = ctrl.MyInformation(req.apply)
	case wizard.StageMyExperience:
		var req myExperienceRequest
		if !bind(c, &req) {
			return
		}
		err = ctrl.MyExperience(req.apply)
	case wizard.StageApplicationQuestions:
		var req applicationQuestionsRequest
		if !bind(c, &req) {
			return
		}
		err = ctrl.ApplicationQuestions(func(e *wizard.ApplicationQuestionsEditor) error {
			for key, raw := range req.Answers {
				v, err := wizard.ParseYesNo(raw)
				if err != nil {
					return err
				}
				if err := e.Answer(key, v); err != nil {
					return err
				}
			}
			return nil
		})
	case wizard.StageVoluntaryDisclosures:
		var req voluntaryDisclosuresRequest
		if !bind(c, &req) {
			return
		}
		err = ctrl.VoluntaryDisclosures(func(e *wizard.VoluntaryDisclosuresEditor) error {
			if req.TermsAccepted != nil {
				e.SetTermsAccepted(*req.TermsAccepted)
			}
			return nil
		})
	default:
		err = fmt.Errorf("%w: the review stage has no fields", wizard.ErrStageNotActive)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wizardResponse{ID: c.Param("id"), View: ctrl.View()})
}

func bind(c *gin.Context, into interface{}) bool {
	if err := c.ShouldBindJSON(into); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

// attachResume reads the multipart "resume" field. Oversized files are
// refused before they are buffered.
func (s *Server) attachResume(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("resume")
	if err != nil {
		badRequest(c, "multipart field \"resume\" is required")
		return
	}
	if fh.Size > s.cfg.MaxResumeBytes {
		respondError(c, fmt.Errorf("%w: %d bytes exceeds %d", wizard.ErrResumeTooLarge, fh.Size, s.cfg.MaxResumeBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxResumeBytes+1))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	err = ctrl.MyExperience(func(e *wizard.MyExperienceEditor) error {
		return e.AttachResume(fh.Filename, fh.Header.Get("Content-Type"), data)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wizardResponse{ID: c.Param("id"), View: ctrl.View()})
}

func (s *Server) removeResume(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	err := ctrl.MyExperience(func(e *wizard.MyExperienceEditor) error {
		e.RemoveResume()
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wizardResponse{ID: c.Param("id"), View: ctrl.View()})
}

// ==========================
// Transitions
// ==========================

// next answers 422 with the field errors when the stage blocks.
func (s *Server) next(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	res, err := ctrl.Next()
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, wizardResponse{ID: c.Param("id"), View: ctrl.View()})
}

func (s *Server) back(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	if err := ctrl.Back(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wizardResponse{ID: c.Param("id"), View: ctrl.View()})
}

func (s *Server) dismiss(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	if err := ctrl.Dismiss(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wizardResponse{ID: c.Param("id"), View: ctrl.View()})
}

// submit runs the transport under its own timeout. A transport failure
// answers with the view so the client can show the failure message.
func (s *Server) submit(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.SubmitTimeout)
	defer cancel()

	receipt, err := ctrl.Submit(ctx)
	if err != nil {
		if ctrl.Phase() == wizard.PhaseSubmissionFailed {
			status, body := classify(err)
			c.JSON(status, gin.H{"error": body, "wizard": wizardResponse{ID: c.Param("id"), View: ctrl.View()}})
			return
		}
		if errors.Is(err, wizard.ErrIncomplete) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  ErrorBody{Code: err.Error(), Message: wizard.IncompleteMessage},
				"wizard": wizardResponse{ID: c.Param("id"), View: ctrl.View()},
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"receipt": receipt,
		"wizard":  wizardResponse{ID: c.Param("id"), View: ctrl.View()},
	})
}
