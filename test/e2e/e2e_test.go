//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/internal/applications"
	"hireflow/internal/common/camunda"
	"hireflow/internal/common/config"
	"hireflow/internal/common/database"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/storage"
	"hireflow/internal/jobs"
	"hireflow/internal/models"
	"hireflow/internal/notifications"
	"hireflow/internal/search"
	"hireflow/internal/wizard"
	"hireflow/pkg/registry"

	createapplicationrecord "hireflow/internal/workers/application/create-application-record"
	updateapplicationstatus "hireflow/internal/workers/application/update-application-status"
	validateapplicationdata "hireflow/internal/workers/application/validate-application-data"
)

var zeebeClient zbc.Client

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var err error
	zeebeClient, err = camunda.Connect(ctx, camunda.ClientConfig{
		GatewayAddress:         envOr("ZEEBE_ADDRESS", "localhost:26500"),
		UsePlaintextConnection: true,
		RetryConfig:            &camunda.RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second},
	}, logger.NewNoOpLogger())
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Zeebe: %v", err))
	}

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

type environment struct {
	cfg   *config.Config
	pg    *database.PostgresClient
	redis *database.RedisClient
	index *search.Index
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	env := connect(t, ctx, cfg)
	defer env.pg.Close()
	defer env.redis.Close()

	require.NoError(t, database.RunMigrations(ctx, env.pg.GetDB()))
	deployAllBPMN(t, ctx)

	jobID := seedJobPosting(t, ctx, env)
	runApplicationFlow(t, ctx, env, jobID)
}

// ==========================
// 1. Service Connectivity
// ==========================
func connect(t *testing.T, ctx context.Context, cfg *config.Config) *environment {
	t.Log("Checking service connectivity...")

	cfg.Database.Postgres.Host = envOr("POSTGRES_HOST", "localhost")
	cfg.Database.Redis.Address = envOr("REDIS_ADDRESS", "localhost:6379")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")

	require.NoError(t, camunda.HealthCheck(ctx, zeebeClient), "Zeebe topology request failed")

	env := &environment{cfg: cfg, pg: pg, redis: rdb}
	if cfg.Database.Elasticsearch.Enabled() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		require.NoError(t, err)
		require.NoError(t, es.Ping(ctx), "Elasticsearch ping failed")
		env.index = search.NewIndex(es.Client, cfg.Database.Elasticsearch.Index+"-e2e", logger.NewTestLogger(t))
		require.NoError(t, env.index.EnsureIndex(ctx))
	}
	return env
}

// ==========================
// 2. Test Data
// ==========================
func seedJobPosting(t *testing.T, ctx context.Context, env *environment) string {
	db := env.pg.GetDB()

	_, err := db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, phone) VALUES ('e2e-employer', 'employer@example.com', '+15550000000')
		 ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)

	var id string
	err = db.QueryRowContext(ctx,
		`INSERT INTO job_posting (job_title, company_name, creator_id, location)
		 VALUES ('Backend Engineer', 'E2E Corp', 'e2e-employer', 'Remote')
		 RETURNING id`).Scan(&id)
	require.NoError(t, err)
	return id
}

// ==========================
// 3. Deploy BPMN Files
// ==========================
func deployAllBPMN(t *testing.T, ctx context.Context) {
	var dir string
	for _, p := range []string{"bpmn", "../bpmn", "../../bpmn"} {
		if st, err := os.Stat(p); err == nil && st.IsDir() {
			dir = p
			break
		}
	}
	if dir == "" {
		t.Log("BPMN directory not found, skipping deployment")
		return
	}

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(strings.ToLower(f.Name()), ".bpmn") {
			continue
		}
		path := filepath.Join(dir, f.Name())
		_, err := zeebeClient.NewDeployResourceCommand().AddResourceFile(path).Send(ctx)
		assert.NoError(t, err, "deploy %s", path)
	}
}

// ==========================
// 4. Application Flow
// ==========================
func runApplicationFlow(t *testing.T, ctx context.Context, env *environment, jobID string) {
	log := logger.NewTestLogger(t)
	db := env.pg.GetDB()

	jobRepo := jobs.NewRepository(db, env.redis.GetClient(), time.Minute, log)
	feed := notifications.NewStore(db, env.redis.GetClient(), log)
	appRepo := applications.NewRepository(db)

	var searcher applications.Searcher
	opts := []wizard.TransportOption{wizard.WithTransportLogger(log)}
	if env.index != nil {
		searcher = env.index
		opts = append(opts, wizard.WithIndexer(env.index))
	}
	service := applications.NewService(appRepo, feed, searcher, log)
	transport := wizard.NewTransport(storage.NewLocal(t.TempDir(), "http://localhost/resumes"), appRepo,
		append(opts, wizard.WithNotifier(service))...)

	form := wizard.FormState{
		Applicant: wizard.Applicant{
			GivenName:  "Erin",
			FamilyName: "Tester",
			Email:      "erin@example.com",
			Phone:      wizard.Phone{Type: "mobile", CountryCode: "+1", Number: "5551234567"},
			Address:    wizard.Address{Street: "1 Main St", City: "Toronto", Province: "Ontario", PostalCode: "12345", CountryCode: "CA"},
		},
		WorkHistory:   []wizard.WorkEntry{{Title: "Engineer", Company: "Initech", StartDate: "2020-01"}},
		Education:     []wizard.EducationEntry{{School: "State University", Degree: "BSc"}},
		Skills:           []string{"Go", "PostgreSQL"},
		ScreeningAnswers: map[string]wizard.ScreeningAnswer{},
		TermsAccepted:    true,
	}
	for _, q := range registry.Default().Questions {
		form.ScreeningAnswers[q.Key] = wizard.ScreeningAnswer{Answer: wizard.No}
	}

	validated, err := validateapplicationdata.NewHandler(nil, log).
		Execute(ctx, &validateapplicationdata.Input{Form: form})
	require.NoError(t, err)
	assert.True(t, validated.IsValid)

	created, err := createapplicationrecord.NewHandler(nil, jobRepo, transport, nil, log).
		Execute(ctx, &createapplicationrecord.Input{ApplicantID: "e2e-seeker", JobPostingID: jobID, Form: form})
	require.NoError(t, err)
	require.NotEmpty(t, created.ApplicationID)

	app, err := service.Get(ctx, created.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, "E2E Corp", app.Company)
	assert.Equal(t, models.StatusPending, app.Status)

	employerFeed, err := feed.ListForRecipient(ctx, "e2e-employer", notifications.DefaultFeedLimit)
	require.NoError(t, err)
	require.NotEmpty(t, employerFeed)
	assert.Equal(t, models.NotificationApplication, employerFeed[0].Type)

	updated, err := updateapplicationstatus.NewHandler(nil, service, log).
		Execute(ctx, &updateapplicationstatus.Input{ApplicationID: created.ApplicationID, Status: "interview"})
	require.NoError(t, err)
	assert.Equal(t, "interview", updated.Status)

	seekerFeed, err := feed.ListForRecipient(ctx, "e2e-seeker", notifications.DefaultFeedLimit)
	require.NoError(t, err)
	require.NotEmpty(t, seekerFeed)

	page, err := service.List(ctx, applications.Filter{JobPostingID: jobID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
