package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"telescreen-backend/internal/models"
	"telescreen-backend/internal/repository"
	"telescreen-backend/internal/ws"
)

// AlertQueue is the Redis list the alert-report handler pushes to.
const AlertQueue = "queue:alert-reports"

type publisher interface {
	PublishToAdmins(ctx context.Context, event string, payload interface{})
}

// Pool drains queued alert reports: persist, then fan out to admin viewers.
// The HTTP handler stays fast and the write path absorbs bursts.
type Pool struct {
	redis       *redis.Client
	alerts      *repository.AlertRepo
	hub         publisher
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, alerts *repository.AlertRepo, hub publisher, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		alerts:      alerts,
		hub:         hub,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d alert dispatch workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Alert worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout so shutdown is observed promptly enough.
		result, err := p.redis.BLPop(ctx, 30*time.Second, AlertQueue).Result()
		if err != nil {
			continue // Timeout or transient error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.AlertJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Alert worker %d: failed to parse job: %v", id, err)
			continue
		}

		p.process(ctx, id, job)
	}
}

func (p *Pool) process(ctx context.Context, id int, job models.AlertJob) {
	report := &models.AlertReport{
		EmployeeID:      job.EmployeeID,
		AlertType:       job.AlertType,
		ActionAttempted: job.ActionAttempted,
		Details:         job.Details,
		CreatedAt:       job.ReportedAt,
	}

	if err := p.alerts.Create(ctx, report); err != nil {
		log.Printf("Alert worker %d: persist failed: %v", id, err)
		// One requeue for transient store failures, then drop.
		if job.Attempts < 1 {
			job.Attempts++
			if data, mErr := json.Marshal(job); mErr == nil {
				p.redis.RPush(ctx, AlertQueue, data)
			}
		}
		return
	}

	p.hub.PublishToAdmins(ctx, ws.EvAdminSecurityAlert, report)
}
