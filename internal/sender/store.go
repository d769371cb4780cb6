package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// RedisSetter is the part of *redis.Client the redis sink needs.
type RedisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LatestKey is where the most recent report is cached under prefix.
func LatestKey(prefix string) string { return prefix + ":latest" }

// RunKey is where the report of one run is cached under prefix.
func RunKey(prefix, runID string) string { return prefix + ":" + runID }

// RedisSender caches the report JSON as the latest report and under its run id.
type RedisSender struct {
	Client    RedisSetter
	KeyPrefix string
	TTL       time.Duration
}

func (s *RedisSender) Send(ctx context.Context, report models.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	if err := s.Client.Set(ctx, LatestKey(s.KeyPrefix), body, s.TTL).Err(); err != nil {
		return fmt.Errorf("cache latest report: %w", err)
	}
	if report.RunID == "" {
		return nil
	}
	if err := s.Client.Set(ctx, RunKey(s.KeyPrefix, report.RunID), body, s.TTL).Err(); err != nil {
		return fmt.Errorf("cache report %s: %w", report.RunID, err)
	}
	return nil
}

// UtilizationStore persists namespace utilization rows. *db.TimescaleDB implements it.
type UtilizationStore interface {
	InsertNamespaceUtilization(ctx context.Context, t time.Time, runID string, dr models.DateRange, node models.NodeRecord, u models.NamespaceUtilization) error
}

// TimescaleSender writes one row per node and namespace of the report.
type TimescaleSender struct {
	Store UtilizationStore
}

func (s *TimescaleSender) Send(ctx context.Context, report models.Report) error {
	ts := report.GeneratedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rows := 0
	for _, node := range report.Response {
		for _, u := range node.UtilizationDetail {
			if err := s.Store.InsertNamespaceUtilization(ctx, ts, report.RunID, report.RequestPayload.DateRange, node, u); err != nil {
				return fmt.Errorf("insert %s/%s after %d rows: %w", node.NodeID, u.Namespace, rows, err)
			}
			rows++
		}
	}
	return nil
}
