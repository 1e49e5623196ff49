// File: cron/worker.go
package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"slotify/config"
	disputeRepo "slotify/database/repository/dispute"
	"slotify/models"
	"slotify/services/booking"
	"slotify/services/payment"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

func queueRedisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewTaskClient returns the asynq client the services enqueue through.
func NewTaskClient() *asynq.Client {
	return asynq.NewClient(queueRedisOpts())
}

// InitWorker runs the async worker in background. It owns settlement
// closes, dispute settlements, notice handoffs and the reconciliation
// sweeps.
func InitWorker(bookingSvc booking.BookingService, paymentSvc payment.PaymentService, disputes disputeRepo.DisputeRepository) {
	srv := asynq.NewServer(
		queueRedisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(models.TaskSettlementClose, handleSettlementClose(paymentSvc))
	mux.HandleFunc(models.TaskSettlementDispute, handleDisputeSettlement(paymentSvc, disputes))
	mux.HandleFunc(models.TaskNotifySend, handleNotifySend)
	mux.HandleFunc(models.TaskReconcileExpirePending, handleSweep("expire_pending", bookingSvc.ExpirePendingPayments))
	mux.HandleFunc(models.TaskReconcileAutoCancel, handleSweep("auto_cancel", bookingSvc.AutoCancelUnaccepted))
	mux.HandleFunc(models.TaskReconcileAutoCapture, handleSweep("auto_capture", bookingSvc.AutoCaptureReady))
	mux.HandleFunc(models.TaskReconcileExpireDays, handleSweep("expire_days", bookingSvc.ExpireCalendarDays))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[Worker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// InitScheduler enqueues the reconciliation sweeps on their cadences.
func InitScheduler() {
	scheduler := asynq.NewScheduler(queueRedisOpts(), &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	entries := []struct {
		spec string
		task string
	}{
		{"@every 1m", models.TaskReconcileExpirePending},
		{"@every 1h", models.TaskReconcileAutoCancel},
		{"@every 1h", models.TaskReconcileAutoCapture},
		{"0 3 * * *", models.TaskReconcileExpireDays},
	}
	for _, e := range entries {
		if _, err := scheduler.Register(e.spec, asynq.NewTask(e.task, nil)); err != nil {
			log.Fatalf("[Scheduler] ❗ Failed to register %s: %v", e.task, err)
		}
	}

	go func() {
		log.Println("[Scheduler] 🚀 Starting sweep scheduler...")
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[Scheduler] ❗ Scheduler stopped: %v", err)
		}
	}()
}

func handleSettlementClose(paymentSvc payment.PaymentService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.SettlementClosePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[SettlementClose] 🔴 Invalid payload: %v", err)
			return err
		}

		if err := paymentSvc.CaptureAndClose(ctx, p.PaymentID); err != nil {
			log.Printf("[SettlementClose] ❌ Failed to settle payment %s: %v", p.PaymentID, err)
			return err
		}
		return nil
	}
}

// handleDisputeSettlement only moves money for a verdict that actually
// landed: the task is enqueued before the dispute closes, so a task
// whose resolve lost the race carries a verdict the store never kept.
func handleDisputeSettlement(paymentSvc payment.PaymentService, disputes disputeRepo.DisputeRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.DisputeSettlementPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[DisputeSettlement] 🔴 Invalid payload: %v", err)
			return err
		}

		d, err := disputes.GetByID(ctx, p.DisputeID)
		if err != nil {
			log.Printf("[DisputeSettlement] ❌ Failed to load dispute %s: %v", p.DisputeID, err)
			return err
		}
		if d == nil || d.Status != models.DisputeClosed || d.Winner != p.Winner {
			log.Printf("[DisputeSettlement] ⚠️ Verdict %s not confirmed for dispute %s, dropping", p.Winner, p.DisputeID)
			return nil
		}

		if err := paymentSvc.SettleDispute(ctx, p.PaymentID, p.Winner); err != nil {
			log.Printf("[DisputeSettlement] ❌ Failed to settle dispute %s: %v", p.DisputeID, err)
			return err
		}
		return nil
	}
}

// handleNotifySend hands the notice to the delivery side. Delivery
// itself lives outside this service; the queue is the boundary.
func handleNotifySend(_ context.Context, task *asynq.Task) error {
	var n models.Notice
	if err := json.Unmarshal(task.Payload(), &n); err != nil {
		log.Printf("[Notify] 🔴 Invalid payload: %v", err)
		return err
	}

	log.Printf("[Notify] 📨 Notice %s for recipient %s", n.TemplateID, n.RecipientID)
	return nil
}

func handleSweep(name string, sweep func(context.Context, time.Time) (int, error)) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := sweep(ctx, time.Now().UTC())
		if err != nil {
			log.Printf("[Sweep:%s] ❌ Sweep failed: %v", name, err)
			return err
		}
		if n > 0 {
			log.Printf("[Sweep:%s] ✅ Processed %d bookings", name, n)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[Worker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
