// cmd/nsa-scheduler/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nsa-scheduler/internal/batch"
	"nsa-scheduler/internal/common/config"
	"nsa-scheduler/internal/common/logger"
	"nsa-scheduler/internal/dealer"
	"nsa-scheduler/internal/ledger"
	"nsa-scheduler/internal/notify"
	"nsa-scheduler/internal/platform"
	"nsa-scheduler/internal/report"
	"nsa-scheduler/internal/scheduler"
	"nsa-scheduler/internal/template"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	runID := uuid.NewString()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"runId": runID,
	})

	zapLog.Info("starting nsa-scheduler", zap.String("runId", runID))

	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				log.Warn("metrics listener stopped", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	ctx := context.Background()

	rows, err := batch.Read(cfg.Batch.InputPath, cfg.Batch.Format)
	if err != nil {
		zapLog.Fatal("batch load failed", zap.Error(err))
	}
	if len(rows) == 0 {
		log.Info("batch is empty, nothing to schedule", nil)
		return
	}
	log.Info("batch loaded", map[string]interface{}{
		"rows":   len(rows),
		"source": cfg.Batch.InputPath,
	})

	api := platform.NewClient(
		cfg.Platform.BaseURL,
		cfg.Platform.Username,
		cfg.Platform.Password,
		config.GetDuration(cfg.Platform.Timeout),
	)

	renderer, err := template.LoadRenderer(cfg.Templates.TextPath, cfg.Templates.EmailPath, log)
	if err != nil {
		zapLog.Fatal("template load failed", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(api, renderer, notify.Config{
		TextEnabled:   cfg.Notifications.Text.Enabled,
		EmailEnabled:  cfg.Notifications.Email.Enabled,
		AddTCPAFooter: cfg.Notifications.Text.AddTCPAFooter,
		AddSignature:  cfg.Notifications.AddSignature,
		AddFooter:     cfg.Notifications.AddFooter,
	}, log)

	resolver := dealer.NewResolver(cfg.Dealers, api, log)
	resolver.Prefetch(ctx, rows)

	led := ledger.New(newLedgerStore(cfg), log)
	led.Load(ctx)

	sched := scheduler.New(api, dispatcher, resolver, led, scheduler.Config{
		Retry: scheduler.FixedDelayPolicy(
			cfg.Scheduler.MaxAttempts,
			config.GetDuration(cfg.Scheduler.RetryDelayMs),
		),
		RowDelay: config.GetDuration(cfg.Scheduler.RowDelayMs),
	}, confirmDuplicates, log)

	summary, runErr := sched.Run(ctx, rows)

	// The ledger is flushed once per run, after the batch finishes or
	// aborts, so scheduled appointments survive a later crash.
	if err := led.Save(ctx); err != nil {
		log.Error("ledger save failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if runErr != nil {
		zapLog.Fatal("batch run halted", zap.Error(runErr))
	}

	sink, err := newReportSink(cfg)
	if err != nil {
		zapLog.Fatal("report sink init failed", zap.Error(err))
	}
	if err := sink.Write(ctx, rows); err != nil {
		zapLog.Fatal("report write failed", zap.Error(err))
	}

	log.Info("run complete", map[string]interface{}{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	})
}

func newLedgerStore(cfg *config.Config) ledger.Store {
	if cfg.Ledger.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Ledger.Redis.Address,
			Password: cfg.Ledger.Redis.Password,
			DB:       cfg.Ledger.Redis.DB,
		})
		return ledger.NewRedisStore(client, cfg.Ledger.Key)
	}
	return ledger.NewFileStore(cfg.Ledger.Path)
}

func newReportSink(cfg *config.Config) (report.Sink, error) {
	if cfg.Report.Output == "postgres" {
		return report.NewPostgresSink(cfg.Report.Postgres.GetDSN(), cfg.Report.Postgres.Table)
	}
	return report.NewCSVSink(cfg.Report.Path), nil
}

// confirmDuplicates prompts the operator when RO numbers in the batch were
// already scheduled in an earlier run. Anything other than y/yes aborts.
func confirmDuplicates(duplicates []ledger.Entry) bool {
	fmt.Printf("%d repair order(s) in this batch were already scheduled:\n", len(duplicates))
	for _, e := range duplicates {
		fmt.Printf("  RO %s  %s %s  (dealer %s, appointment %s)\n",
			e.RONumber, e.FirstName, e.LastName, e.DealerID, e.AppointmentID)
	}
	fmt.Print("Proceed and schedule them again? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
