package collector

import "github.com/bugfreev587/openshift-utilization/internal/models"

// BuildReport assembles the node-wise report from acc. query is echoed back
// without its paging cursor.
func BuildReport(query models.Query, acc *Accumulator) models.Report {
	return models.Report{
		RequestPayload: query.WithoutPaging(),
		Response:       acc.Nodes(),
		Orphans:        acc.Orphans(),
	}
}
