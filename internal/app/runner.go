package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bugfreev587/openshift-utilization/internal/collector"
	"github.com/bugfreev587/openshift-utilization/internal/config"
	"github.com/bugfreev587/openshift-utilization/internal/models"
	"github.com/bugfreev587/openshift-utilization/internal/observability"
	"github.com/bugfreev587/openshift-utilization/internal/reportapi"
	"github.com/bugfreev587/openshift-utilization/internal/sender"
)

// Runner performs aggregation runs and hands each report to the senders.
type Runner struct {
	cfg       *config.Config
	collector *collector.Collector
	sender    sender.Sender
	recorder  *observability.Recorder
	logger    *zap.Logger

	// OnReport, when set, is called with every report produced.
	OnReport func(models.Report)
}

func NewRunner(cfg *config.Config, source collector.PageSource, s sender.Sender, recorder *observability.Recorder, logger *zap.Logger) (*Runner, error) {
	policy, err := collector.ParseOrphanPolicy(cfg.OrphanPolicy)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = observability.NewRecorder()
	}
	return &Runner{
		cfg:       cfg,
		collector: collector.NewCollector(source, policy, logger, recorder),
		sender:    s,
		recorder:  recorder,
		logger:    logger,
	}, nil
}

// NewClient builds the reporting API client described by cfg.
func NewClient(cfg *config.Config, logger *zap.Logger) *reportapi.Client {
	return reportapi.NewClient(reportapi.Options{
		BaseURL:            cfg.BaseURL,
		AuthToken:          cfg.AuthToken,
		Timeout:            cfg.HTTPTimeout,
		RetryMaxElapsed:    cfg.RetryMaxElapsed,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Logger:             logger,
	})
}

// RunOnce aggregates one report and sends it. Sender failures are returned
// together with the report, which is still valid.
func (r *Runner) RunOnce(ctx context.Context) (models.Report, error) {
	start := time.Now()
	r.logger.Info("starting aggregation run",
		zap.String("start_date", r.cfg.StartDate),
		zap.String("end_date", r.cfg.EndDate),
		zap.Int("page_size", r.cfg.PageSize))

	report, err := r.collector.Run(ctx, r.cfg.CapacityQuery(), r.cfg.UsageQuery())
	r.recorder.ObserveRun(report, time.Since(start), err)
	if err != nil {
		return report, fmt.Errorf("aggregation run: %w", err)
	}
	r.logger.Info("aggregation run finished",
		zap.String("run_id", report.RunID),
		zap.Int("nodes", len(report.Response)),
		zap.Int("orphans", report.Orphans),
		zap.Bool("partial", report.Partial),
		zap.Duration("elapsed", time.Since(start)))

	if r.OnReport != nil {
		r.OnReport(report)
	}

	var sendErr error
	if r.sender != nil {
		sendErr = r.sender.Send(ctx, report)
		if sendErr != nil {
			r.logger.Error("sending report failed", zap.String("run_id", report.RunID), zap.Error(sendErr))
		}
	}
	if r.cfg.PushgatewayURL != "" {
		if err := r.recorder.Push(ctx, r.cfg.PushgatewayURL, "openshift_utilization"); err != nil {
			r.logger.Warn("pushing metrics failed", zap.Error(err))
		}
	}
	return report, sendErr
}

// Start runs Loop in a goroutine. The returned channel is closed once the
// loop has returned after ctx is done.
func (r *Runner) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Loop(ctx, interval)
	}()
	return done
}

// Loop runs immediately and then every interval until ctx is done.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
