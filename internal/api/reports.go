package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// ReportProvider returns the most recent report, if any run has finished.
type ReportProvider interface {
	Latest() (models.Report, bool)
}

// ReportCache holds the latest report in memory.
type ReportCache struct {
	mu     sync.RWMutex
	report models.Report
	ok     bool
}

var _ ReportProvider = (*ReportCache)(nil)

func (c *ReportCache) Set(report models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = report
	c.ok = true
}

func (c *ReportCache) Latest() (models.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report, c.ok
}

func setRunHeaders(c *gin.Context, report models.Report) {
	if report.RunID != "" {
		c.Header("X-Run-ID", report.RunID)
	}
	c.Header("X-Report-Partial", strconv.FormatBool(report.Partial))
	c.Header("X-Report-Orphans", strconv.Itoa(report.Orphans))
}

func (s *Server) getLatestReport(c *gin.Context) {
	report, ok := s.reports.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}
	setRunHeaders(c, report)
	c.JSON(http.StatusOK, report)
}

func (s *Server) getNodeReport(c *gin.Context) {
	report, ok := s.reports.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
		return
	}
	nodeID := c.Param("node_id")
	for _, node := range report.Response {
		if node.NodeID == nodeID {
			setRunHeaders(c, report)
			c.JSON(http.StatusOK, node)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "node not found", "node_id": nodeID})
}
