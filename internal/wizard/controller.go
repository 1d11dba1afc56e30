// Package wizard implements the five-stage job application wizard: the form
// state, stage-scoped editors, validators, and the submission protocol.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/models"
	"hireflow/pkg/registry"
)

// Phase is the controller state outside of the stage index.
type Phase string

const (
	PhaseEditing          Phase = "editing"
	PhaseSubmitting       Phase = "submitting"
	PhaseSubmitted        Phase = "submitted"
	PhaseSubmissionFailed Phase = "submission_failed"
)

// DefaultRedirectDelay is how long the host waits before leaving the
// wizard after a successful submission.
const DefaultRedirectDelay = 2 * time.Second

// Receipt describes a successful submission.
type Receipt struct {
	ApplicationID string        `json:"applicationId"`
	ResumeURL     string        `json:"resumeUrl,omitempty"`
	RedirectAfter time.Duration `json:"redirectAfter"`
}

// Hooks are called outside the controller lock.
type Hooks struct {
	OnComplete func(Receipt)
	OnError    func(message string)
}

// View is a read-only copy of the controller state.
type View struct {
	Stage          Stage             `json:"stage"`
	StageName      string            `json:"stageName"`
	Phase          Phase             `json:"phase"`
	Errors         map[string]string `json:"errors"`
	FailureMessage string            `json:"failureMessage,omitempty"`
	Mount          MountContext      `json:"mount"`
	Form           *FormState        `json:"form,omitempty"`
	Receipt        *Receipt          `json:"receipt,omitempty"`
}

type Option func(*Controller)

func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithCatalog(catalog *registry.QuestionCatalog) Option {
	return func(c *Controller) { c.catalog = catalog }
}

func WithRedirectDelay(d time.Duration) Option {
	return func(c *Controller) { c.redirectDelay = d }
}

func WithMaxResumeBytes(n int64) Option {
	return func(c *Controller) { c.maxResumeBytes = n }
}

// Controller owns one FormState and drives it through the stages. All
// methods are safe for concurrent use; the lock is released only while the
// transport runs, and the Submitting phase guards against a second submit.
type Controller struct {
	mu sync.Mutex

	mount     MountContext
	transport Submitter
	catalog   *registry.QuestionCatalog
	hooks     Hooks
	logger    logger.Logger

	redirectDelay  time.Duration
	maxResumeBytes int64

	form    *FormState
	stage   Stage
	phase   Phase
	errors  map[string]string
	failure string
	receipt *Receipt
}

// New mounts a fresh wizard at stage 1.
func New(mount MountContext, transport Submitter, opts ...Option) (*Controller, error) {
	if mount.Company == "" {
		return nil, ErrMissingCompany
	}
	if mount.ApplicantID == "" {
		return nil, ErrMissingApplicant
	}
	if transport == nil {
		return nil, fmt.Errorf("wizard: nil transport")
	}

	c := &Controller{
		mount:          mount,
		transport:      transport,
		logger:         logger.NewNoOpLogger(),
		redirectDelay:  DefaultRedirectDelay,
		maxResumeBytes: DefaultMaxResumeBytes,
		stage:          StageMyInformation,
		phase:          PhaseEditing,
		errors:         map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		c.catalog = registry.Default()
	}
	c.logger = c.logger.WithFields(map[string]interface{}{
		"component": "wizard",
		"company":   mount.Company,
		"jobId":     mount.JobID,
	})
	c.form = NewFormState(c.catalog)

	c.logger.Debug("wizard mounted", nil)
	return c, nil
}

// Catalog returns the screening questions this wizard was seeded with.
func (c *Controller) Catalog() *registry.QuestionCatalog { return c.catalog }

func (c *Controller) Mount() MountContext { return c.mount }

// Stage returns the current stage index.
func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// View returns a deep copy of the visible state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(map[string]string, len(c.errors))
	for k, v := range c.errors {
		errs[k] = v
	}
	v := View{
		Stage:          c.stage,
		StageName:      c.stage.String(),
		Phase:          c.phase,
		Errors:         errs,
		FailureMessage: c.failure,
		Mount:          c.mount,
	}
	if c.form != nil {
		v.Form = c.form.Clone()
	}
	if c.receipt != nil {
		r := *c.receipt
		v.Receipt = &r
	}
	return v
}

// Snapshot returns a copy of the form, or nil once it has been discarded.
func (c *Controller) Snapshot() *FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == nil {
		return nil
	}
	return c.form.Clone()
}

// ==========================
// Stage-scoped edits
// ==========================

// edit applies fn to a copy of the form and commits it only when fn
// succeeds.
func (c *Controller) edit(s Stage, fn func(f *FormState) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseEditing {
		return fmt.Errorf("%w: %s", ErrNotEditing, c.phase)
	}
	if c.stage != s {
		return fmt.Errorf("%w: %s is not the current stage (%s)", ErrStageNotActive, s, c.stage)
	}

	draft := c.form.Clone()
	if err := fn(draft); err != nil {
		return err
	}
	c.form = draft
	return nil
}

func (c *Controller) MyInformation(fn func(e *MyInformationEditor) error) error {
	return c.edit(StageMyInformation, func(f *FormState) error {
		return fn(&MyInformationEditor{f: f})
	})
}

func (c *Controller) MyExperience(fn func(e *MyExperienceEditor) error) error {
	return c.edit(StageMyExperience, func(f *FormState) error {
		return fn(&MyExperienceEditor{f: f, maxResumeBytes: c.maxResumeBytes})
	})
}

func (c *Controller) ApplicationQuestions(fn func(e *ApplicationQuestionsEditor) error) error {
	return c.edit(StageApplicationQuestions, func(f *FormState) error {
		return fn(&ApplicationQuestionsEditor{f: f})
	})
}

func (c *Controller) VoluntaryDisclosures(fn func(e *VoluntaryDisclosuresEditor) error) error {
	return c.edit(StageVoluntaryDisclosures, func(f *FormState) error {
		return fn(&VoluntaryDisclosuresEditor{f: f})
	})
}

// ==========================
// Transitions
// ==========================

// Next validates the current stage and advances on success. A blocked
// transition returns an invalid Result and a nil error.
func (c *Controller) Next() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseEditing {
		return newResult(), fmt.Errorf("%w: %s", ErrNotEditing, c.phase)
	}
	if c.stage >= StageReview {
		return newResult(), ErrNoNextStage
	}

	res := newResult()
	if v := ValidatorFor(c.stage); v != nil {
		res = v(c.form)
	}
	c.errors = res.Errors

	if !res.Valid {
		c.record(c.stage, "blocked", map[string]interface{}{"errors": FieldKeys(res.Errors)})
		return res, nil
	}

	from := c.stage
	c.stage++
	c.record(from, "advanced", map[string]interface{}{"to": c.stage.String()})
	return res, nil
}

// Back moves to the previous stage without validating.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseEditing {
		return fmt.Errorf("%w: %s", ErrNotEditing, c.phase)
	}
	if c.stage <= StageMyInformation {
		return ErrNoPreviousStage
	}

	from := c.stage
	c.stage--
	c.errors = map[string]string{}
	c.record(from, "back", map[string]interface{}{"to": c.stage.String()})
	return nil
}

// Dismiss returns a failed submission to the Review stage.
func (c *Controller) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSubmissionFailed {
		return ErrNothingToDismiss
	}
	c.dismissLocked()
	return nil
}

func (c *Controller) dismissLocked() {
	c.phase = PhaseEditing
	c.stage = StageReview
	c.failure = ""
	c.record(StageReview, "dismissed", nil)
}

// Submit runs the final validation and, when it passes, hands the built
// payload to the transport. Calling Submit after a failure dismisses it
// first.
func (c *Controller) Submit(ctx context.Context) (*Receipt, error) {
	c.mu.Lock()

	switch c.phase {
	case PhaseSubmitting:
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	case PhaseSubmitted:
		c.mu.Unlock()
		return nil, ErrAlreadySubmitted
	case PhaseSubmissionFailed:
		c.dismissLocked()
	}

	if c.stage != StageReview {
		stage := c.stage
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: current stage is %s", ErrNotAtReview, stage)
	}

	res := ValidateFinal(c.form)
	c.errors = res.Errors
	if !res.Valid {
		c.record(StageReview, "incomplete", map[string]interface{}{"errors": FieldKeys(res.Errors)})
		onError := c.hooks.OnError
		c.mu.Unlock()
		if onError != nil {
			onError(IncompleteMessage)
		}
		return nil, ErrIncomplete
	}

	c.phase = PhaseSubmitting
	payload := Build(c.form, c.mount)
	resume := c.form.Resume
	c.record(StageReview, "submitting", nil)
	c.mu.Unlock()

	result, err := c.transport.Submit(ctx, payload, resume)

	c.mu.Lock()
	if err != nil {
		c.phase = PhaseSubmissionFailed
		c.failure = FailureMessage(err)
		msg := c.failure
		onError := c.hooks.OnError
		c.record(StageReview, "failed", map[string]interface{}{"error": err.Error()})
		c.mu.Unlock()
		if onError != nil {
			onError(msg)
		}
		return nil, err
	}

	receipt := Receipt{
		ApplicationID: result.ApplicationID,
		ResumeURL:     result.ResumeURL,
		RedirectAfter: c.redirectDelay,
	}
	c.phase = PhaseSubmitted
	c.receipt = &receipt
	c.form = nil
	c.errors = map[string]string{}
	onComplete := c.hooks.OnComplete
	c.record(StageReview, "submitted", map[string]interface{}{"applicationId": receipt.ApplicationID})
	c.mu.Unlock()

	if onComplete != nil {
		onComplete(receipt)
	}
	return &receipt, nil
}

func (c *Controller) record(stage Stage, outcome string, fields map[string]interface{}) {
	metrics.WizardTransitions.WithLabelValues(stage.String(), outcome).Inc()
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["stage"] = stage.String()
	fields["outcome"] = outcome
	fields["phase"] = string(c.phase)
	c.logger.Info("wizard transition", fields)
}

// ==========================
// Mount resolution
// ==========================

// JobLookup reads a job posting by id.
type JobLookup interface {
	Get(ctx context.Context, id string) (*models.JobPosting, error)
}

// ResolveMount fills the company from the job posting when a job id is
// given. An unknown or archived job id fails the mount.
func ResolveMount(ctx context.Context, jobs JobLookup, company, jobID, applicantID string) (MountContext, error) {
	mount := MountContext{Company: company, JobID: jobID, ApplicantID: applicantID}
	if jobID != "" && jobs != nil {
		job, err := jobs.Get(ctx, jobID)
		if err != nil {
			return MountContext{}, err
		}
		if job.Status == models.JobPostingArchived {
			return MountContext{}, apperrors.NewJobPostingNotFoundError(jobID)
		}
		if mount.Company == "" {
			mount.Company = job.CompanyName
		}
	}
	if mount.Company == "" {
		return MountContext{}, ErrMissingCompany
	}
	if mount.ApplicantID == "" {
		return MountContext{}, ErrMissingApplicant
	}
	return mount, nil
}
