package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bugfreev587/openshift-utilization/internal/models"
	"github.com/bugfreev587/openshift-utilization/internal/reportapi"
)

const (
	DatasetCapacity = "capacity"
	DatasetUsage    = "usage"
)

// PageSource fetches single pages of the capacity and usage queries.
type PageSource interface {
	FetchCapacityPage(ctx context.Context, q models.Query) (*models.Page[models.CapacityRecord], error)
	FetchUsagePage(ctx context.Context, q models.Query) (*models.Page[models.UsageRecord], error)
}

// Recorder receives progress of a run. observability.Recorder implements it.
type Recorder interface {
	PageFetched(dataset string, records int)
	RecordIngested(result IngestResult)
	RunPartial(dataset string)
}

type nopRecorder struct{}

func (nopRecorder) PageFetched(string, int)     {}
func (nopRecorder) RecordIngested(IngestResult) {}
func (nopRecorder) RunPartial(string)           {}

// Collector pulls both datasets from the reporting API and aggregates them.
type Collector struct {
	Source       PageSource
	OrphanPolicy OrphanPolicy
	Logger       *zap.Logger
	Recorder     Recorder
}

func NewCollector(source PageSource, policy OrphanPolicy, logger *zap.Logger, recorder Recorder) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Collector{Source: source, OrphanPolicy: policy, Logger: logger, Recorder: recorder}
}

// LoadCapacity reads every capacity page into a new index. On a *reportapi.PageError
// the index holds the pages read before the failure.
func (c *Collector) LoadCapacity(ctx context.Context, q models.Query) (*CapacityIndex, error) {
	idx := NewCapacityIndex()
	pages, err := reportapi.Paginate[models.CapacityRecord](ctx, c.Source.FetchCapacityPage, q, func(records []models.CapacityRecord) error {
		c.Logger.Info("received capacity page", zap.Int("records", len(records)))
		c.Recorder.PageFetched(DatasetCapacity, len(records))
		idx.Add(records...)
		return nil
	})
	c.Logger.Info("capacity loaded", zap.Int("pages", pages), zap.Int("keys", idx.Len()))
	return idx, err
}

// AggregateUsage streams usage pages through an Aggregator backed by idx.
func (c *Collector) AggregateUsage(ctx context.Context, idx *CapacityIndex, q models.Query, acc *Accumulator) error {
	agg := NewAggregator(idx, c.OrphanPolicy, c.Logger)
	pages, err := reportapi.Paginate[models.UsageRecord](ctx, c.Source.FetchUsagePage, q, func(records []models.UsageRecord) error {
		c.Logger.Info("evaluating usage page", zap.Int("records", len(records)))
		c.Recorder.PageFetched(DatasetUsage, len(records))
		for _, rec := range records {
			res, err := agg.Ingest(acc, rec)
			c.Recorder.RecordIngested(res)
			if err != nil {
				return err
			}
		}
		return nil
	})
	c.Logger.Info("usage aggregated", zap.Int("pages", pages), zap.Int("ingested", acc.Ingested()), zap.Int("orphans", acc.Orphans()))
	return err
}

// Run loads capacity, aggregates usage and builds the report. A failed page
// fetch does not fail the run: the report is built from what was read and
// marked Partial.
func (c *Collector) Run(ctx context.Context, capacityQuery, usageQuery models.Query) (models.Report, error) {
	partial := false

	idx, err := c.LoadCapacity(ctx, capacityQuery)
	if err != nil {
		if !c.absorbPageError(DatasetCapacity, err) {
			return models.Report{}, err
		}
		partial = true
	}

	acc := NewAccumulator()
	if err := c.AggregateUsage(ctx, idx, usageQuery, acc); err != nil {
		if !c.absorbPageError(DatasetUsage, err) {
			return models.Report{}, err
		}
		partial = true
	}

	report := BuildReport(usageQuery, acc)
	report.RunID = uuid.NewString()
	report.GeneratedAt = time.Now().UTC()
	report.Partial = partial
	return report, nil
}

func (c *Collector) absorbPageError(dataset string, err error) bool {
	var pe *reportapi.PageError
	if !errors.As(err, &pe) {
		return false
	}
	c.Logger.Error("pagination stopped early, continuing with partial data",
		zap.String("dataset", dataset), zap.Int("page", pe.Page), zap.Error(pe.Err))
	c.Recorder.RunPartial(dataset)
	return true
}
