package wizard

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
	"hireflow/internal/common/observability"
	"hireflow/internal/common/storage"
	"hireflow/internal/common/validation"
	"hireflow/internal/models"
)

//go:embed schema/application.json
var applicationSchema []byte

var payloadSchema = validation.MustCompileSchema(applicationSchema)

// ValidatePayload checks a built payload against the embedded schema.
func ValidatePayload(p models.ApplicationPayload) error {
	res, err := payloadSchema.Validate(p)
	if err != nil {
		return apperrors.NewApplicationValidationFailedError(err.Error())
	}
	if !res.Valid {
		return apperrors.NewApplicationValidationFailedError(strings.Join(res.GetErrorMessages(), "; "))
	}
	return nil
}

// ApplicationInserter persists one application row.
type ApplicationInserter interface {
	Insert(ctx context.Context, payload models.ApplicationPayload) (*models.Application, error)
}

// Notifier tells the job posting's creator about a new application.
type Notifier interface {
	NotifyNewApplication(ctx context.Context, app *models.Application) error
}

// Indexer makes a stored application searchable.
type Indexer interface {
	IndexApplication(ctx context.Context, app *models.Application, resume []byte, contentType string) error
}

// Submitter is what the Controller hands a built payload to.
type Submitter interface {
	Submit(ctx context.Context, payload models.ApplicationPayload, resume *ResumeFile) (*SubmitResult, error)
}

// SubmitResult is returned once the row is stored.
type SubmitResult struct {
	ApplicationID string
	ResumeURL     string
}

// Transport uploads the resume, then inserts the application. Upload
// strictly precedes insert and an upload failure prevents the insert.
type Transport struct {
	store    storage.ObjectStore
	apps     ApplicationInserter
	notifier Notifier
	indexer  Indexer
	prefix   string
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

type TransportOption func(*Transport)

func WithNotifier(n Notifier) TransportOption {
	return func(t *Transport) { t.notifier = n }
}

func WithIndexer(i Indexer) TransportOption {
	return func(t *Transport) { t.indexer = i }
}

func WithKeyPrefix(prefix string) TransportOption {
	return func(t *Transport) { t.prefix = prefix }
}

func WithObservability(o *observability.Observability) TransportOption {
	return func(t *Transport) { t.obs = o }
}

func WithTransportLogger(l logger.Logger) TransportOption {
	return func(t *Transport) { t.logger = l.WithFields(map[string]interface{}{"component": "transport"}) }
}

// WithClock overrides the time source used for upload keys.
func WithClock(now func() time.Time) TransportOption {
	return func(t *Transport) { t.now = now }
}

// NewTransport wires the object store and the applications store. The
// notifier and indexer are optional.
func NewTransport(store storage.ObjectStore, apps ApplicationInserter, opts ...TransportOption) *Transport {
	t := &Transport{
		store:  store,
		apps:   apps,
		prefix: "applications",
		logger: logger.NewNoOpLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit runs validate, upload, insert, then the best-effort follow-ups.
func (t *Transport) Submit(ctx context.Context, payload models.ApplicationPayload, resume *ResumeFile) (result *SubmitResult, err error) {
	start := time.Now()
	ctx, span := t.obs.StartSpan(ctx, "wizard.transport.submit",
		attribute.String("company", payload.Company),
		attribute.Bool("resume", resume != nil),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.SubmissionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		t.obs.RecordSubmission(ctx, outcome, time.Since(start))
		observability.EndSpan(span, err)
	}()

	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}

	if resume != nil {
		url, err := t.upload(ctx, resume)
		if err != nil {
			return nil, err
		}
		payload.ResumeURL = &url
	}

	app, err := t.insert(ctx, payload)
	if err != nil {
		return nil, err
	}

	t.followUps(ctx, app, resume)

	result = &SubmitResult{ApplicationID: app.ID}
	if payload.ResumeURL != nil {
		result.ResumeURL = *payload.ResumeURL
	}
	t.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"company":       payload.Company,
		"hasResume":     resume != nil,
	})
	return result, nil
}

func (t *Transport) upload(ctx context.Context, resume *ResumeFile) (url string, err error) {
	ctx, span := t.obs.StartSpan(ctx, "wizard.transport.upload",
		attribute.Int64("size", int64(len(resume.Data))),
	)
	defer func() { observability.EndSpan(span, err) }()

	if t.store == nil {
		return "", apperrors.NewResumeUploadFailedError(fmt.Errorf("no object store configured"))
	}

	key, err := storage.ResumeKey(t.prefix, t.now(), resume.Name)
	if err != nil {
		return "", apperrors.NewResumeUploadFailedError(err)
	}

	n, err := t.store.Upload(ctx, key, resume.ContentType, bytes.NewReader(resume.Data))
	if err != nil {
		t.logger.Error("resume upload failed", map[string]interface{}{"key": key, "error": err.Error()})
		return "", apperrors.NewResumeUploadFailedError(err)
	}

	metrics.ResumeUploadBytes.Observe(float64(n))
	t.obs.RecordUploadBytes(ctx, n)
	return t.store.PublicURL(key), nil
}

func (t *Transport) insert(ctx context.Context, payload models.ApplicationPayload) (app *models.Application, err error) {
	ctx, span := t.obs.StartSpan(ctx, "wizard.transport.insert")
	defer func() { observability.EndSpan(span, err) }()

	app, err = t.apps.Insert(ctx, payload)
	if err != nil {
		t.logger.Error("application insert failed", map[string]interface{}{"error": err.Error()})
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewDatabaseInsertFailedError("applications", err)
	}
	return app, nil
}

// followUps never fail the submission.
func (t *Transport) followUps(ctx context.Context, app *models.Application, resume *ResumeFile) {
	if t.notifier != nil {
		nctx, span := t.obs.StartSpan(ctx, "wizard.followup.notify")
		err := t.notifier.NotifyNewApplication(nctx, app)
		observability.EndSpan(span, err)
		if err != nil {
			metrics.FollowUpFailures.WithLabelValues("notify").Inc()
			t.logger.Warn("new application notification failed", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
		}
	}

	if t.indexer != nil {
		var data []byte
		var contentType string
		if resume != nil {
			data, contentType = resume.Data, resume.ContentType
		}
		ictx, span := t.obs.StartSpan(ctx, "wizard.followup.index")
		err := t.indexer.IndexApplication(ictx, app, data, contentType)
		observability.EndSpan(span, err)
		if err != nil {
			metrics.FollowUpFailures.WithLabelValues("index").Inc()
			t.logger.Warn("application indexing failed", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
		}
	}
}
