package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Consumer metrics
	MessagesConsumed   *prometheus.CounterVec
	Rebalances         *prometheus.CounterVec
	PartitionsAssigned *prometheus.GaugeVec

	// Ingestion metrics
	BatchesReceived  prometheus.Counter
	MessagesReceived prometheus.Counter

	// Decode metrics
	PayloadsDecoded   *prometheus.CounterVec
	DecompressMethods *prometheus.CounterVec
	RoutingRejections prometheus.Counter

	// Aggregation metrics
	GroupsAggregated prometheus.Counter
	GroupsDropped    prometheus.Counter
	GroupsFailed     prometheus.Counter

	// Segment metrics
	SegmentsWritten *prometheus.CounterVec
	RowsWritten     *prometheus.CounterVec
	SegmentSize     prometheus.Histogram
	UploadDuration  *prometheus.HistogramVec
	SinkErrors      *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		MessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_consumed_total",
				Help: "Total number of Kafka messages consumed",
			},
			[]string{"topic", "partition"},
		),
		Rebalances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_rebalances_total",
				Help: "Total number of consumer group rebalances",
			},
			[]string{"group_id"},
		),
		PartitionsAssigned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kafka_partitions_assigned",
				Help: "Number of partitions currently assigned, per topic",
			},
			[]string{"topic"},
		),
		BatchesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingest_batches_received_total",
			Help: "Total number of message batches received from the stream",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingest_messages_received_total",
			Help: "Total number of individual messages extracted from batches",
		}),
		PayloadsDecoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decode_payloads_total",
				Help: "Total number of payloads decoded, by resulting shape",
			},
			[]string{"shape"},
		),
		DecompressMethods: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decode_decompress_method_total",
				Help: "Total number of payloads per winning decompression method",
			},
			[]string{"method"},
		),
		RoutingRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "route_rejections_total",
			Help: "Total number of messages excluded for invalid routing",
		}),
		GroupsAggregated: factory.NewCounter(prometheus.CounterOpts{
			Name: "aggregate_groups_total",
			Help: "Total number of route-key groups that produced a table",
		}),
		GroupsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "aggregate_groups_dropped_total",
			Help: "Total number of groups dropped for holding no usable fragment",
		}),
		GroupsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "aggregate_groups_failed_total",
			Help: "Total number of groups whose segment writing failed",
		}),
		SegmentsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segments_written_total",
				Help: "Total number of segments uploaded to the sink",
			},
			[]string{"folder", "table", "format"},
		),
		RowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segment_rows_written_total",
				Help: "Total number of table rows written across segments",
			},
			[]string{"folder", "table"},
		),
		SegmentSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "segment_size_bytes",
			Help:    "Size of encoded segments",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),
		UploadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sink_upload_duration_seconds",
				Help:    "Duration of sink upload operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		SinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sink_errors_total",
				Help: "Total number of sink errors",
			},
			[]string{"backend", "operation"},
		),
	}
}

// IncMessagesConsumed increments the consumed message counter.
func (m *Metrics) IncMessagesConsumed(topic string, partition int32) {
	m.MessagesConsumed.WithLabelValues(topic, strconv.Itoa(int(partition))).Inc()
}

// IncRebalances increments the rebalance counter for a consumer group.
func (m *Metrics) IncRebalances(groupID string) {
	m.Rebalances.WithLabelValues(groupID).Inc()
}

// SetPartitionsAssigned records the partition count assigned for a topic.
func (m *Metrics) SetPartitionsAssigned(topic string, count float64) {
	m.PartitionsAssigned.WithLabelValues(topic).Set(count)
}

// IncBatchesReceived increments the received batch counter.
func (m *Metrics) IncBatchesReceived() {
	m.BatchesReceived.Inc()
}

// AddMessagesReceived adds to the received message counter.
func (m *Metrics) AddMessagesReceived(n int) {
	m.MessagesReceived.Add(float64(n))
}

// IncPayloadsDecoded increments the decode counter for a payload shape.
func (m *Metrics) IncPayloadsDecoded(shape string) {
	m.PayloadsDecoded.WithLabelValues(shape).Inc()
}

// IncDecompressMethod increments the winning-method counter.
func (m *Metrics) IncDecompressMethod(method string) {
	m.DecompressMethods.WithLabelValues(method).Inc()
}

// IncRoutingRejections increments the invalid-routing counter.
func (m *Metrics) IncRoutingRejections() {
	m.RoutingRejections.Inc()
}

// IncGroupsAggregated increments the aggregated-group counter.
func (m *Metrics) IncGroupsAggregated() {
	m.GroupsAggregated.Inc()
}

// IncGroupsDropped increments the dropped-group counter.
func (m *Metrics) IncGroupsDropped() {
	m.GroupsDropped.Inc()
}

// IncGroupsFailed increments the failed-group counter.
func (m *Metrics) IncGroupsFailed() {
	m.GroupsFailed.Inc()
}

// IncSegmentsWritten increments the written-segment counter.
func (m *Metrics) IncSegmentsWritten(folder, table, format string) {
	m.SegmentsWritten.WithLabelValues(folder, table, format).Inc()
}

// AddRowsWritten adds to the written-row counter.
func (m *Metrics) AddRowsWritten(folder, table string, rows int) {
	m.RowsWritten.WithLabelValues(folder, table).Add(float64(rows))
}

// ObserveSegmentSize observes one encoded segment's size.
func (m *Metrics) ObserveSegmentSize(size float64) {
	m.SegmentSize.Observe(size)
}

// ObserveUploadDuration observes one upload's duration.
func (m *Metrics) ObserveUploadDuration(backend string, seconds float64) {
	m.UploadDuration.WithLabelValues(backend).Observe(seconds)
}

// IncSinkErrors increments the sink error counter.
func (m *Metrics) IncSinkErrors(backend, operation string) {
	m.SinkErrors.WithLabelValues(backend, operation).Inc()
}
