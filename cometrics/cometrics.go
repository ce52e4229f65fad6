// Package cometrics provides optional Prometheus collectors over a
// cotask.Registry and a pipe.Pipe. Nothing in this package registers
// itself globally: the embedding host constructs a collector and
// registers it against its own *prometheus.Registry, so importing this
// package has no effect on a host that doesn't use Prometheus.
package cometrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cotask/cotask"
	"github.com/cotask/cotask/pipe"
)

// TaskCollector reports the live status distribution of the tasks
// tracked by a *cotask.Registry.
type TaskCollector struct {
	reg *cotask.Registry

	statusDesc    *prometheus.Desc
	totalDesc     *prometheus.Desc
	cancelledDesc *prometheus.Desc
}

// NewTaskCollector wraps reg as a Prometheus collector.
func NewTaskCollector(reg *cotask.Registry) *TaskCollector {
	return &TaskCollector{
		reg: reg,
		statusDesc: prometheus.NewDesc(
			"cotask_tasks",
			"Number of tracked tasks currently in each status.",
			[]string{"status"}, nil,
		),
		totalDesc: prometheus.NewDesc(
			"cotask_tasks_total",
			"Total number of tasks currently tracked, across all statuses.",
			nil, nil,
		),
		cancelledDesc: prometheus.NewDesc(
			"cotask_tasks_cancelled_total",
			"Cumulative number of tracked tasks that completed with ErrCancelled.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *TaskCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.statusDesc
	ch <- c.totalDesc
	ch <- c.cancelledDesc
}

// Collect implements prometheus.Collector.
func (c *TaskCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.reg.Stats()
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(s.Suspended), "suspended")
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(s.Running), "running")
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(s.Normal), "normal")
	ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, float64(s.Dead), "dead")
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.cancelledDesc, prometheus.CounterValue, float64(s.Cancelled))
}

var _ prometheus.Collector = (*TaskCollector)(nil)

// PipeCollector reports the in-flight worker count and buffered output
// queue depth of a single pipe stage.
type PipeCollector struct {
	p *pipe.Pipe

	workersDesc *prometheus.Desc
	queueDesc   *prometheus.Desc
}

// NewPipeCollector wraps p as a Prometheus collector. Chaining Map
// produces a new *pipe.Pipe per stage, so one PipeCollector reports one
// stage; wrap each stage worth watching separately.
func NewPipeCollector(p *pipe.Pipe) *PipeCollector {
	return &PipeCollector{
		p: p,
		workersDesc: prometheus.NewDesc(
			"cotask_pipe_workers_in_flight",
			"Number of Map workers currently running for this pipe stage.",
			nil, nil,
		),
		queueDesc: prometheus.NewDesc(
			"cotask_pipe_queue_depth",
			"Number of completed items buffered in this pipe stage's output queue.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *PipeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workersDesc
	ch <- c.queueDesc
}

// Collect implements prometheus.Collector.
func (c *PipeCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.workersDesc, prometheus.GaugeValue, float64(c.p.WorkersInFlight()))
	ch <- prometheus.MustNewConstMetric(c.queueDesc, prometheus.GaugeValue, float64(c.p.QueueDepth()))
}

var _ prometheus.Collector = (*PipeCollector)(nil)
