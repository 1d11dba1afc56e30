// Package api serves the wizard, the employer application views and the
// notification feed over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"hireflow/internal/applications"
	"hireflow/internal/common/auth"
	"hireflow/internal/common/logger"
	"hireflow/internal/models"
	"hireflow/internal/notifications"
	"hireflow/internal/wizard"
	"hireflow/pkg/registry"
)

// ApplicationService is the employer/applicant side of stored applications.
type ApplicationService interface {
	Get(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, f applications.Filter) (*models.ApplicationPage, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Application, error)
	SetShortlisted(ctx context.Context, id string, shortlisted bool) (*models.Application, error)
	Withdraw(ctx context.Context, id string) (*models.Application, error)
}

// NotificationFeed reads and acknowledges a recipient's notifications.
type NotificationFeed interface {
	notifications.FeedReader
	MarkAsRead(ctx context.Context, id, recipientID string) error
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}

// ReadinessCheck reports whether one dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

type Config struct {
	AllowedOrigins []string
	JWTSecret      []byte
	RedirectDelay  time.Duration
	SubmitTimeout  time.Duration
	MaxResumeBytes int64
	PollInterval   time.Duration
	// FilesDir, when set, is served under FilesPath (default /files) for
	// the local resume store.
	FilesDir  string
	FilesPath string
}

// Deps are the collaborators behind the routes. Applications, Postings,
// Notifications and Subscriber may be nil; their routes then answer 503.
// KeySet, when set, admits realm-signed RS256 tokens next to HS256 ones.
type Deps struct {
	Sessions      *SessionRegistry
	KeySet        *auth.KeySet
	Postings      PostingService
	Jobs          wizard.JobLookup
	Transport     wizard.Submitter
	Catalog       *registry.QuestionCatalog
	Applications  ApplicationService
	Notifications NotificationFeed
	Subscriber    notifications.Subscriber
	Checks        map[string]ReadinessCheck
	Gatherer      prometheus.Gatherer
}

type Server struct {
	cfg    Config
	deps   Deps
	logger logger.Logger
	engine *gin.Engine
}

func NewServer(cfg Config, deps Deps, log logger.Logger) *Server {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	if cfg.MaxResumeBytes <= 0 {
		cfg.MaxResumeBytes = wizard.DefaultMaxResumeBytes
	}
	if deps.Catalog == nil {
		deps.Catalog = registry.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	if s.cfg.FilesDir != "" {
		path := s.cfg.FilesPath
		if path == "" {
			path = "/files"
		}
		r.Static(path, s.cfg.FilesDir)
	}

	v1 := r.Group("/api/v1", auth.Middleware(auth.NewVerifier(s.cfg.JWTSecret, s.deps.KeySet)))

	v1.GET("/questions", s.questions)

	w := v1.Group("/wizard")
	w.POST("", s.mountWizard)
	w.GET("/:id", s.viewWizard)
	w.DELETE("/:id", s.abandonWizard)
	w.PUT("/:id/stages/:stage", s.editStage)
	w.POST("/:id/resume", s.attachResume)
	w.DELETE("/:id/resume", s.removeResume)
	w.POST("/:id/next", s.next)
	w.POST("/:id/back", s.back)
	w.POST("/:id/submit", s.submit)
	w.POST("/:id/dismiss", s.dismiss)

	a := v1.Group("/applications", s.require(s.deps.Applications != nil))
	a.GET("", s.listApplications)
	a.GET("/:id", s.getApplication)
	a.PATCH("/:id/status", s.updateStatus)
	a.PATCH("/:id/shortlist", s.setShortlisted)
	a.POST("/:id/withdraw", s.withdraw)

	j := v1.Group("/jobs", s.require(s.deps.Postings != nil))
	j.GET("", s.listJobs)
	j.POST("", s.createJob)
	j.GET("/stats", s.jobStats)
	j.GET("/:id", s.getJob)
	j.PUT("/:id", s.updateJob)
	j.POST("/:id/archive", s.archiveJob)
	j.POST("/:id/restore", s.restoreJob)

	n := v1.Group("/notifications", s.require(s.deps.Notifications != nil))
	n.GET("", s.listNotifications)
	n.GET("/stream", s.streamNotifications)
	n.POST("/:id/read", s.markRead)

	return r
}

// Engine exposes the router without CORS, for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler is the engine wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(s.engine)
}

func (s *Server) require(available bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": ErrorBody{
				Code:    "SERVICE_UNAVAILABLE",
				Message: "This feature is not configured",
			}})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("request failed", fields)
			return
		}
		s.logger.Debug("request", fields)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": checks})
}
