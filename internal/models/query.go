package models

import "time"

// Page sizes above this are rejected by the reporting API.
const MaxPageSize = 1000

type DateRange struct {
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
}

// Query is the body POSTed to the reporting API. ExecID and NextToken are
// copied from the previous page while paginating.
type Query struct {
	DateRange  DateRange `json:"date_range" yaml:"date_range"`
	Dimensions []string  `json:"dimensions" yaml:"dimensions"`
	Metrics    []string  `json:"metrics" yaml:"metrics"`
	PageSize   int       `json:"page_size" yaml:"page_size"`
	ExecID     string    `json:"exec_id,omitempty" yaml:"exec_id,omitempty"`
	NextToken  *string   `json:"next_token,omitempty" yaml:"next_token,omitempty"`
}

// WithoutPaging returns a copy of q with the cursor fields cleared.
func (q Query) WithoutPaging() Query {
	q.ExecID = ""
	q.NextToken = nil
	q.Dimensions = append([]string(nil), q.Dimensions...)
	q.Metrics = append([]string(nil), q.Metrics...)
	return q
}

func CapacityQuery(start, end string, pageSize int) Query {
	return Query{
		DateRange: DateRange{StartDate: start, EndDate: end},
		Dimensions: []string{
			"namespace",
			"pod_name",
			"node_name",
			"node_id",
			"node_capacity_cpu_unit",
			"node_capacity_memory_unit",
		},
		Metrics: []string{
			"node_capacity_cpu",
			"node_capacity_memory",
		},
		PageSize: pageSize,
	}
}

func UsageQuery(start, end string, pageSize int) Query {
	return Query{
		DateRange: DateRange{StartDate: start, EndDate: end},
		Dimensions: []string{
			"namespace",
			"node_id",
			"node_name",
			"pod_name",
			"pod_usage_cpu_unit",
			"pod_request_cpu_unit",
			"pod_usage_memory_unit",
			"pod_request_memory_unit",
		},
		Metrics: []string{
			"pod_usage_cpu",
			"pod_request_cpu",
			"pod_usage_memory",
			"pod_request_memory",
		},
		PageSize: pageSize,
	}
}

// Page is one response of the reporting API. A nil NextToken marks the last page.
type Page[T any] struct {
	Response  []T     `json:"response"`
	NextToken *string `json:"next_token"`
	ExecID    string  `json:"exec_id"`
}

// Report is the final node-wise structure handed to the result sinks.
type Report struct {
	RequestPayload Query        `json:"request_payload" yaml:"request_payload"`
	Response       []NodeRecord `json:"response" yaml:"response"`

	RunID       string    `json:"-" yaml:"-"`
	GeneratedAt time.Time `json:"-" yaml:"-"`
	// Orphans counts usage records skipped for lack of capacity data.
	Orphans int `json:"-" yaml:"-"`
	// Partial is set when a page fetch failed and pagination stopped early.
	Partial bool `json:"-" yaml:"-"`
}
