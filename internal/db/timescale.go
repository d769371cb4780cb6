package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

const createNamespaceUtilization = `CREATE TABLE IF NOT EXISTS namespace_utilization (
	time TIMESTAMPTZ NOT NULL,
	run_id TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	node_id TEXT NOT NULL,
	node_name TEXT NOT NULL,
	namespace TEXT NOT NULL,
	utilization DOUBLE PRECISION NOT NULL,
	cpu_usage_percentage DOUBLE PRECISION NOT NULL,
	memory_usage_percentage DOUBLE PRECISION NOT NULL,
	cpu_request_percentage DOUBLE PRECISION NOT NULL,
	memory_request_percentage DOUBLE PRECISION NOT NULL
)`

// Execer is the subset of *pgxpool.Pool used for writes.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type TimescaleDB struct {
	pool *pgxpool.Pool
	exec Execer
}

func InitTimescale(dsn string) (*TimescaleDB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	return &TimescaleDB{pool: pool, exec: pool}, nil
}

// NewTimescaleWithExecer builds a TimescaleDB that writes through exec. Health
// always succeeds; it is meant for tests and callers managing their own pool.
func NewTimescaleWithExecer(exec Execer) *TimescaleDB {
	return &TimescaleDB{exec: exec}
}

func (db *TimescaleDB) CloseDB() {
	if db.pool != nil {
		db.pool.Close()
	}
}

func (db *TimescaleDB) Health(ctx context.Context) error {
	if db.pool == nil {
		return nil
	}
	return db.pool.Ping(ctx)
}

// EnsureSchema creates the namespace_utilization table when missing.
func (db *TimescaleDB) EnsureSchema(ctx context.Context) error {
	_, err := db.exec.Exec(ctx, createNamespaceUtilization)
	return err
}

func (db *TimescaleDB) InsertNamespaceUtilization(ctx context.Context, t time.Time, runID string, dr models.DateRange, node models.NodeRecord, u models.NamespaceUtilization) error {
	q := `INSERT INTO namespace_utilization (time, run_id, start_date, end_date, node_id, node_name, namespace, utilization, cpu_usage_percentage, memory_usage_percentage, cpu_request_percentage, memory_request_percentage) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := db.exec.Exec(ctx, q, t, runID, dr.StartDate, dr.EndDate, node.NodeID, node.NodeName, u.Namespace, u.Utilization,
		u.Details.CPUUsagePercentage, u.Details.MemoryUsagePercentage, u.Details.CPURequestPercentage, u.Details.MemoryRequestPercentage)
	return err
}
