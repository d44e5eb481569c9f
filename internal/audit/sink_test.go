package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitshare/internal/distribution"
)

type capturePublisher struct {
	queue    string
	messages []interface{}
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, queueName string, message interface{}) error {
	p.queue = queueName
	p.messages = append(p.messages, message)
	return p.err
}

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, distribution.AuditRecord) error { return f.err }

func sampleRecord() distribution.AuditRecord {
	return distribution.AuditRecord{
		ID:          "audit-1",
		Actor:       "alice",
		Action:      distribution.ActionClaimProcessing,
		EntityType:  "profit_claim",
		EntityID:    "d1_alice",
		BeforeState: map[string]any{"status": "pending"},
		AfterState:  map[string]any{"status": "processing"},
		Timestamp:   time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestQueueSink(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewQueueSink(pub, "profit_audit")

	require.NoError(t, sink.Record(context.Background(), sampleRecord()))
	assert.Equal(t, "profit_audit", pub.queue)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, sampleRecord(), pub.messages[0])
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	require.NoError(t, NewLogSink(logger).Record(context.Background(), sampleRecord()))
	assert.Contains(t, buf.String(), `"action":"claim.processing"`)
	assert.Contains(t, buf.String(), `"entity_id":"d1_alice"`)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("queue down")
	pub := &capturePublisher{}
	sink := MultiSink{failingSink{err: boom}, nil, NewQueueSink(pub, "q")}

	err := sink.Record(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, pub.messages, 1)
}
