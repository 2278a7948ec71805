package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishBatchEncodesAndDefaultsTopic(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "growthlens.predictions", "gzip")

	err := p.PublishBatch(context.Background(), "", []Message{
		{Key: []byte("weekly"), Value: map[string]int{"num_day": 1}, Headers: map[string]string{"kind": "ltv"}},
		{Value: "raw"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "growthlens.predictions", w.msgs[0].Topic)
	assert.JSONEq(t, `{"num_day":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "kind", w.msgs[0].Headers[0].Key)
	assert.Equal(t, "raw", string(w.msgs[1].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishMessageWrapsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, "", "none")

	err := p.PublishMessage(context.Background(), "logs", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logs")

	assert.Error(t, p.PublishMessage(context.Background(), "", []byte("x")))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}
