package collector

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// ErrOrphanRecord is returned for a usage record that has no capacity record.
var ErrOrphanRecord = errors.New("missing capacity data for usage record")

// OrphanPolicy decides what happens to usage records without capacity data.
type OrphanPolicy string

const (
	// OrphanSkip logs and counts the record, then continues with the next one.
	OrphanSkip OrphanPolicy = "skip"
	// OrphanAbort stops the run with ErrOrphanRecord.
	OrphanAbort OrphanPolicy = "abort"
)

func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(s) {
	case OrphanSkip, "":
		return OrphanSkip, nil
	case OrphanAbort:
		return OrphanAbort, nil
	}
	return "", fmt.Errorf("unknown orphan policy %q (want %q or %q)", s, OrphanSkip, OrphanAbort)
}

// IngestResult tells the caller what Ingest did with a record.
type IngestResult int

const (
	Ingested IngestResult = iota
	Orphan
)

func (r IngestResult) String() string {
	if r == Orphan {
		return "orphan"
	}
	return "ingested"
}

// Accumulator is the per-run aggregation state. Nodes keep first-seen order.
type Accumulator struct {
	nodes    []models.NodeRecord
	byNodeID map[string]int
	ingested int
	orphans  sets.Set[string]
	skipped  int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		byNodeID: map[string]int{},
		orphans:  sets.New[string](),
	}
}

// Nodes returns a deep copy of the accumulated node records.
func (a *Accumulator) Nodes() []models.NodeRecord {
	out := make([]models.NodeRecord, 0, len(a.nodes))
	for _, n := range a.nodes {
		n.UtilizationDetail = append([]models.NamespaceUtilization(nil), n.UtilizationDetail...)
		out = append(out, n)
	}
	return out
}

func (a *Accumulator) Ingested() int { return a.ingested }

// Orphans is the number of usage records skipped for lack of capacity data.
func (a *Accumulator) Orphans() int { return a.skipped }

// OrphanKeys lists the distinct capacity keys that had no match, sorted.
func (a *Accumulator) OrphanKeys() []string { return sets.List(a.orphans) }

// add folds entry into the node's utilization detail. An existing entry for
// the same namespace is removed and the merged entry appended.
func (a *Accumulator) add(nodeID, nodeName string, entry models.NamespaceUtilization) {
	i, ok := a.byNodeID[nodeID]
	if !ok {
		a.byNodeID[nodeID] = len(a.nodes)
		a.nodes = append(a.nodes, models.NodeRecord{
			NodeID:            nodeID,
			NodeName:          nodeName,
			UtilizationDetail: []models.NamespaceUtilization{entry},
		})
		return
	}
	node := &a.nodes[i]
	for j, existing := range node.UtilizationDetail {
		if existing.Namespace != entry.Namespace {
			continue
		}
		merged := MergeNamespace(existing, entry)
		node.UtilizationDetail = append(node.UtilizationDetail[:j], node.UtilizationDetail[j+1:]...)
		node.UtilizationDetail = append(node.UtilizationDetail, merged)
		return
	}
	node.UtilizationDetail = append(node.UtilizationDetail, entry)
}

// MergeNamespace sums two entries for the same namespace. Percentages add up
// across pods, so the result may exceed 100.
func MergeNamespace(a, b models.NamespaceUtilization) models.NamespaceUtilization {
	return models.NewNamespaceUtilization(b.Namespace, a.Details.Add(b.Details))
}

// Aggregator joins usage records to capacity records and folds the resulting
// percentages into an Accumulator.
type Aggregator struct {
	index  *CapacityIndex
	policy OrphanPolicy
	logger *zap.Logger
}

func NewAggregator(index *CapacityIndex, policy OrphanPolicy, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = OrphanSkip
	}
	return &Aggregator{index: index, policy: policy, logger: logger}
}

// Ingest adds one usage record to acc. Records are never deduplicated: two
// records for the same node and namespace always sum.
func (g *Aggregator) Ingest(acc *Accumulator, rec models.UsageRecord) (IngestResult, error) {
	capacity, ok := g.index.Lookup(rec.NodeID, rec.Namespace, rec.PodName)
	if !ok {
		key := rec.Key().String()
		if g.policy == OrphanAbort {
			return Orphan, fmt.Errorf("%w: %s", ErrOrphanRecord, key)
		}
		acc.orphans.Insert(key)
		acc.skipped++
		g.logger.Warn("skipping usage record without capacity data",
			zap.String("node_id", rec.NodeID),
			zap.String("namespace", rec.Namespace),
			zap.String("pod_name", rec.PodName))
		return Orphan, nil
	}

	for _, unit := range []string{rec.PodUsageCPUUnit, rec.PodRequestCPUUnit, rec.PodUsageMemoryUnit, rec.PodRequestMemoryUnit} {
		if unit != "" && !IsKnownUnit(unit) {
			g.logger.Debug("usage unit passed through unconverted", zap.String("unit", unit), zap.String("pod_name", rec.PodName))
		}
	}

	entry := models.NewNamespaceUtilization(rec.Namespace, Bundle(capacity, rec))
	acc.add(rec.NodeID, rec.NodeName, entry)
	acc.ingested++
	return Ingested, nil
}

// IngestAll ingests records in order, stopping at the first error.
func (g *Aggregator) IngestAll(acc *Accumulator, records []models.UsageRecord) error {
	for _, rec := range records {
		if _, err := g.Ingest(acc, rec); err != nil {
			return err
		}
	}
	return nil
}
