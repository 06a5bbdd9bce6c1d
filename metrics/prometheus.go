// Package metrics records workflow, agent and model metrics with Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
)

// Options configures NewRecorder.
type Options struct {
	// Registry receives the collectors. Defaults to a fresh registry with
	// the Go and process collectors.
	Registry *prometheus.Registry
}

// Recorder implements model.Recorder and core.Hook on Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	agentInvocations  *prometheus.CounterVec
	agentDuration     *prometheus.HistogramVec
	workflowTotal     *prometheus.CounterVec
	workflowDuration  *prometheus.HistogramVec
	llmRequestsTotal  *prometheus.CounterVec
	llmTokensTotal    *prometheus.CounterVec
	llmRequestSeconds *prometheus.HistogramVec

	started sync.Map // startKey -> time.Time
}

var (
	_ model.Recorder = (*Recorder)(nil)
	_ core.Hook      = (*Recorder)(nil)
)

// NewRecorder creates a recorder with its own registry.
func NewRecorder(optFns ...func(o *Options)) *Recorder {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	factory := promauto.With(opts.Registry)

	return &Recorder{
		registry: opts.Registry,
		agentInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentweave_agent_invocations_total",
				Help: "Total number of agent invocations by agent and status",
			},
			[]string{"agent", "status"},
		),
		agentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentweave_agent_duration_seconds",
				Help:    "Duration of agent invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		workflowTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentweave_workflow_invocations_total",
				Help: "Total number of workflow invocations by workflow and status",
			},
			[]string{"workflow", "status"},
		),
		workflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentweave_workflow_duration_seconds",
				Help:    "Duration of workflow invocations in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"workflow"},
		),
		llmRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentweave_llm_requests_total",
				Help: "Total number of LLM requests by model and status",
			},
			[]string{"model", "status"},
		),
		llmTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentweave_llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "type"},
		),
		llmRequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentweave_llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveModelCall implements model.Recorder.
func (r *Recorder) ObserveModelCall(modelName, status string, usage model.TokenUsage, dur time.Duration) {
	r.llmRequestsTotal.WithLabelValues(modelName, status).Inc()
	r.llmRequestSeconds.WithLabelValues(modelName).Observe(dur.Seconds())

	// Tokens only count for answered requests.
	if status == "success" {
		r.llmTokensTotal.WithLabelValues(modelName, "prompt").Add(float64(usage.PromptTokens))
		r.llmTokensTotal.WithLabelValues(modelName, "completion").Add(float64(usage.CompletionTokens))
	}
}

// ObserveWorkflow records one completed workflow invocation.
func (r *Recorder) ObserveWorkflow(workflow string, err error, dur time.Duration) {
	r.workflowTotal.WithLabelValues(workflow, status(err)).Inc()
	r.workflowDuration.WithLabelValues(workflow).Observe(dur.Seconds())
}

// startKey identifies one agent invocation between BeforeAgent and AfterAgent.
type startKey struct {
	ic    *core.InvocationContext
	agent core.Agent
}

// BeforeAgent implements core.Hook.
func (r *Recorder) BeforeAgent(ic *core.InvocationContext, agent core.Agent) error {
	r.started.Store(startKey{ic: ic, agent: agent}, time.Now())
	return nil
}

// AfterAgent implements core.Hook.
func (r *Recorder) AfterAgent(ic *core.InvocationContext, agent core.Agent, runErr error) error {
	r.agentInvocations.WithLabelValues(agent.Name(), status(runErr)).Inc()

	if v, ok := r.started.LoadAndDelete(startKey{ic: ic, agent: agent}); ok {
		r.agentDuration.WithLabelValues(agent.Name()).Observe(time.Since(v.(time.Time)).Seconds())
	}

	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}

	return "success"
}
