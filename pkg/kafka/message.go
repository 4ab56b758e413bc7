package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	EventProductMerged = "product.merged"
	EventRunFinished   = "run.finished"
)

// Event is the envelope of every message clover publishes.
type Event[T any] struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      T         `json:"data"`

	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

func (e *Event[T]) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ProductMerged carries the full canonical product after a merge.
type ProductMerged struct {
	Product *models.Product `json:"product"`
}

// RunFinished carries the outcome of an import run.
type RunFinished struct {
	Run *models.Run `json:"run"`
}

// MessageHeaders contains Kafka message headers for consumer-side filtering
type MessageHeaders struct {
	EventType   string
	RunID       string
	TraceParent string
}

type Header struct {
	Key   string
	Value []byte
}

func (h *MessageHeaders) ToKafkaHeaders() []Header {
	headers := make([]Header, 0, 3)

	if h.EventType != "" {
		headers = append(headers, Header{Key: "event_type", Value: []byte(h.EventType)})
	}
	if h.RunID != "" {
		headers = append(headers, Header{Key: "run_id", Value: []byte(h.RunID)})
	}
	if h.TraceParent != "" {
		headers = append(headers, Header{Key: "traceparent", Value: []byte(h.TraceParent)})
	}

	return headers
}
