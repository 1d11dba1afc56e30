package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"hireflow/internal/common/config"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/metrics"
)

// HandlerFunc is the job callback every worker package exposes as Handle.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Instrument records the active gauge and duration around h.
func Instrument(taskType string, h HandlerFunc) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		h(client, job)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	}
}

// Register opens a job worker for taskType. Disabled workers return nil.
func Register(client zbc.Client, taskType string, wcfg config.WorkerConfig, h HandlerFunc, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	maxActive := wcfg.MaxJobsActive
	if maxActive <= 0 {
		maxActive = 5
	}
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(Instrument(taskType, h))).
		MaxJobsActive(maxActive).
		Timeout(timeout).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": maxActive,
		"timeout_ms":    timeout.Milliseconds(),
	})
	return jw
}
