package collector

import "github.com/bugfreev587/openshift-utilization/internal/models"

// CapacityIndex maps (node, namespace, pod) to the capacity record reported for it.
type CapacityIndex struct {
	records map[models.CapacityKey]models.CapacityRecord
}

func NewCapacityIndex(records ...models.CapacityRecord) *CapacityIndex {
	idx := &CapacityIndex{records: make(map[models.CapacityKey]models.CapacityRecord, len(records))}
	idx.Add(records...)
	return idx
}

// Add indexes records. When a key repeats, the first record seen is kept.
func (i *CapacityIndex) Add(records ...models.CapacityRecord) {
	for _, r := range records {
		key := r.Key()
		if _, ok := i.records[key]; ok {
			continue
		}
		i.records[key] = r
	}
}

func (i *CapacityIndex) Lookup(nodeID, namespace, podName string) (models.CapacityRecord, bool) {
	r, ok := i.records[models.CapacityKey{NodeID: nodeID, Namespace: namespace, PodName: podName}]
	return r, ok
}

func (i *CapacityIndex) Len() int {
	return len(i.records)
}
