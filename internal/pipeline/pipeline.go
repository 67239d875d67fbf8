// Package pipeline orchestrates one batch through decode, routing,
// aggregation, and segment writing.
package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/jittakal/eventtabstore/internal/aggregate"
	"github.com/jittakal/eventtabstore/internal/decode"
	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/internal/route"
	"github.com/jittakal/eventtabstore/pkg/message"
)

// SegmentWriter writes one aggregated table as sized segments.
type SegmentWriter interface {
	Write(ctx context.Context, table *message.ColumnSet, key message.RouteKey, timestamp time.Time) ([]message.Segment, error)
}

// MetricsCollector defines metrics operations for batch processing.
type MetricsCollector interface {
	IncBatchesReceived()
	AddMessagesReceived(n int)
	IncRoutingRejections()
	IncGroupsAggregated()
	IncGroupsDropped()
	IncGroupsFailed()
}

// Result summarizes one processed batch.
type Result struct {
	Messages int
	Groups   int
	Segments []message.Segment
	Failed   []message.RouteKey
}

// Pipeline runs the decode, route, aggregate, write sequence for inbound
// batches. One pipeline instance is safe for use from a single consumer
// goroutine; it keeps no per-batch state.
type Pipeline struct {
	decoder *decode.Decoder
	router  *route.Router
	writer  SegmentWriter
	logger  *slog.Logger
	metrics MetricsCollector
	now     func() time.Time
}

// New creates a pipeline.
func New(
	decoder *decode.Decoder,
	router *route.Router,
	writer SegmentWriter,
	logger *slog.Logger,
	metrics MetricsCollector,
) *Pipeline {
	return &Pipeline{
		decoder: decoder,
		router:  router,
		writer:  writer,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// ParseBatch splits one batch body into its constituent messages. A JSON
// array yields one message per element, a JSON object yields a single
// message, and anything else is treated as a single bare payload carried
// in the Data field.
func ParseBatch(body []byte) []message.RawMessage {
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err == nil {
		msgs := make([]message.RawMessage, 0, len(elements))
		for _, element := range elements {
			msgs = append(msgs, parseMessage(element))
		}
		return msgs
	}
	return []message.RawMessage{parseMessage(body)}
}

// parseMessage interprets one batch element as an envelope, falling back
// to wrapping non-object values as a bare Data payload.
func parseMessage(raw json.RawMessage) message.RawMessage {
	var msg message.RawMessage
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg
	}
	return message.RawMessage{Data: raw}
}

// Process runs one batch body end to end. Message-level failures (bad
// routing, undecodable payloads) are contained per message; write
// failures are contained per group and reported through the returned
// error so the caller can decide on dead-lettering. All segments of the
// batch share one capture timestamp.
func (p *Pipeline) Process(ctx context.Context, body []byte) (Result, error) {
	if p.metrics != nil {
		p.metrics.IncBatchesReceived()
	}

	msgs := ParseBatch(body)
	if p.metrics != nil {
		p.metrics.AddMessagesReceived(len(msgs))
	}

	fragments := make([]aggregate.Fragment, 0, len(msgs))
	for i := range msgs {
		key, err := p.router.Resolve(&msgs[i])
		if err != nil {
			if p.metrics != nil {
				p.metrics.IncRoutingRejections()
			}
			p.logger.Warn("message rejected by router",
				"source", msgs[i].Source,
				"destination", msgs[i].Destination,
				"error", err,
			)
			continue
		}
		fragments = append(fragments, aggregate.Fragment{
			Key:     key,
			Payload: p.decoder.Decode(&msgs[i]),
		})
	}

	groups := aggregate.Aggregate(fragments)
	if p.metrics != nil {
		for range groups {
			p.metrics.IncGroupsAggregated()
		}
		for i := 0; i < distinctKeys(fragments)-len(groups); i++ {
			p.metrics.IncGroupsDropped()
		}
	}

	timestamp := p.now().UTC()
	result := Result{Messages: len(msgs), Groups: len(groups)}
	var writeErrs []error

	for _, g := range groups {
		segments, err := p.writer.Write(ctx, g.Table, g.Key, timestamp)
		result.Segments = append(result.Segments, segments...)
		if err != nil {
			if p.metrics != nil {
				p.metrics.IncGroupsFailed()
			}
			result.Failed = append(result.Failed, g.Key)
			groupErr := &errors.GroupError{Key: g.Key, Stage: "write", Err: err}
			p.logger.Error("failed to write group",
				"folder", g.Key.Folder,
				"table", g.Key.Table,
				"error", err,
			)
			writeErrs = append(writeErrs, groupErr)
			continue
		}
	}

	p.logger.Info("batch processed",
		"messages", result.Messages,
		"groups", result.Groups,
		"segments", len(result.Segments),
		"failed_groups", len(result.Failed),
	)
	return result, stderrors.Join(writeErrs...)
}

// distinctKeys counts unique route keys across fragments.
func distinctKeys(fragments []aggregate.Fragment) int {
	seen := make(map[message.RouteKey]struct{}, len(fragments))
	for _, f := range fragments {
		seen[f.Key] = struct{}{}
	}
	return len(seen)
}
