package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Chat metrics
	ChatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_chat_turns_total",
			Help: "Total number of chat turns handled",
		},
		[]string{"status"}, // status: success|invalid|upstream_error|tool_loop
	)

	ChatTurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plutus_chat_turn_duration_seconds",
			Help:    "End-to-end chat turn duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		},
		[]string{"status"},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_llm_calls_total",
			Help: "Total number of LLM completion calls",
		},
		[]string{"model", "status"}, // status: success|error
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plutus_llm_latency_seconds",
			Help:    "LLM completion latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_llm_tokens_total",
			Help: "Total tokens consumed by LLM calls",
		},
		[]string{"model", "type"}, // type: prompt|completion
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plutus_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// Provider metrics
	ProviderAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_provider_api_calls_total",
			Help: "Total number of market data provider API calls",
		},
		[]string{"provider", "status"}, // status: success|error|rate_limited
	)

	// Image task metrics
	ImageTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_image_tasks_total",
			Help: "Total number of image tasks by outcome",
		},
		[]string{"outcome"}, // outcome: created|ready|error
	)

	ImageGenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plutus_image_generation_duration_seconds",
			Help:    "Image generation duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Chat metrics
	prometheus.MustRegister(ChatTurns)
	prometheus.MustRegister(ChatTurnDuration)

	// LLM metrics
	prometheus.MustRegister(LLMCalls)
	prometheus.MustRegister(LLMLatency)
	prometheus.MustRegister(LLMTokens)

	// Tool metrics
	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(ToolLatency)

	// Provider metrics
	prometheus.MustRegister(ProviderAPICalls)

	// Image task metrics
	prometheus.MustRegister(ImageTasks)
	prometheus.MustRegister(ImageGenerationDuration)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordChatTurn records a completed chat turn
func RecordChatTurn(status string, duration time.Duration) {
	ChatTurns.WithLabelValues(status).Inc()
	ChatTurnDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordLLMCall records one completion call
func RecordLLMCall(model string, latency time.Duration, promptTokens, completionTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	LLMCalls.WithLabelValues(model, status).Inc()
	LLMLatency.WithLabelValues(model).Observe(latency.Seconds())

	if promptTokens > 0 {
		LLMTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records a tool invocation
func RecordToolExecution(tool string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ToolExecutions.WithLabelValues(tool, status).Inc()
	ToolLatency.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordProviderCall records a market data provider call
func RecordProviderCall(provider, status string) {
	ProviderAPICalls.WithLabelValues(provider, status).Inc()
}

// RecordImageTask records an image task outcome
func RecordImageTask(outcome string) {
	ImageTasks.WithLabelValues(outcome).Inc()
}
