package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DecodeTotal 解码结果，status = ok | not_implemented | error
	DecodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "holosim_decode_total", Help: "Account decode attempts"},
		[]string{"program", "status"},
	)
	// WriterRows 写入方的行数，result = written | unchanged | cached | no_route | failed | dropped
	WriterRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "holosim_writer_rows_total", Help: "Decoded rows handled by the writer"},
		[]string{"table", "result"},
	)
	WriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "holosim_writer_flush_duration_seconds", Help: "Per-table flush latency", Buckets: prometheus.DefBuckets},
		[]string{"table", "status"},
	)
	FeedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "holosim_feed_events_total", Help: "Subscription notifications received"},
		[]string{"program", "signal"},
	)
	WorkerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "holosim_worker_failures_total", Help: "Subscription workers that failed to connect or ended with an error"},
		[]string{"program", "signal"},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "holosim_queue_depth", Help: "Events waiting for the dispatcher"},
	)
	// TxFetchTotal 交易拉取结果，status = ok | not_found | error | skipped_failed
	TxFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "holosim_tx_fetch_total", Help: "Transaction fetches by the dispatcher"},
		[]string{"status"},
	)
	InstructionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "holosim_instruction_count_total", Help: "Instruction log lines attributed to a program"},
		[]string{"program"},
	)
	HttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "holosim_http_requests_total", Help: "Status server requests"},
		[]string{"path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		DecodeTotal,
		WriterRows,
		WriterFlushDuration,
		FeedEvents,
		WorkerFailures,
		QueueDepth,
		TxFetchTotal,
		InstructionCount,
		HttpRequests,
	)
}
