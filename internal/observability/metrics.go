package observability

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics is a process-wide sink for pipeline and LLM instrumentation.
// It is deliberately dependency-free: counters are scraped by whatever
// exporter the surrounding deployment wires up.
type Metrics struct {
	mu sync.Mutex

	llmRequests  map[string]int64
	llmLatency   map[string][]time.Duration
	llmTokensIn  int64
	llmTokensOut int64

	pipelineStages map[string]int64
	pipelineRuns   int64
	pipelineFailed int64
}

var (
	currentMu sync.RWMutex
	current   *Metrics
)

// Init installs a fresh Metrics instance as the process-wide sink.
func Init() *Metrics {
	m := &Metrics{
		llmRequests:    map[string]int64{},
		llmLatency:     map[string][]time.Duration{},
		pipelineStages: map[string]int64{},
	}
	currentMu.Lock()
	current = m
	currentMu.Unlock()
	return m
}

// Current returns the installed Metrics instance, or nil when metrics are
// disabled. Callers must nil-check.
func Current() *Metrics {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}

func (m *Metrics) ObserveLLMRequest(model, status string, latency time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(model, status)
	m.llmRequests[k]++
	m.llmLatency[k] = append(m.llmLatency[k], latency)
	m.llmTokensIn += int64(inputTokens)
	m.llmTokensOut += int64(outputTokens)
}

func (m *Metrics) ObservePipelineStage(stage string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineStages[key(stage, status)]++
}

func (m *Metrics) ObservePipelineRun(ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineRuns++
	if !ok {
		m.pipelineFailed++
	}
}

// Snapshot returns a stable key-sorted view of the counters for logging or
// test assertions.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for k, v := range m.llmRequests {
		out["llm_requests|"+k] = v
	}
	for k, v := range m.pipelineStages {
		out["pipeline_stage|"+k] = v
	}
	out["pipeline_runs"] = m.pipelineRuns
	out["pipeline_failed"] = m.pipelineFailed
	out["llm_tokens_in"] = m.llmTokensIn
	out["llm_tokens_out"] = m.llmTokensOut
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sorted := make(map[string]int64, len(out))
	for _, k := range keys {
		sorted[k] = out[k]
	}
	return sorted
}
