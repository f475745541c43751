package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "booking-events"}

	err := p.Publish(context.Background(), "b-1", map[string]string{"type": "booking.created"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "b-1", string(w.msgs[0].Key))
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "booking.created", got["type"])
}

func TestProducer_PublishErrors(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}, topic: "booking-events"}

	err := p.Publish(context.Background(), "b-1", "x")
	assert.ErrorContains(t, err, "broker down")

	err = p.Publish(context.Background(), "b-1", make(chan int))
	assert.ErrorContains(t, err, "marshal payload")
}

func TestConsumer_CommitsHandledMessages(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	c := &Consumer{reader: r}

	ctx, cancel := context.WithCancel(context.Background())
	var seen []int64
	err := c.Consume(ctx, func(_ context.Context, m kafka.Message) error {
		seen = append(seen, m.Offset)
		if len(seen) == 2 {
			cancel()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestConsumer_HandlerErrorStopsWithoutCommit(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 7}}}
	c := &Consumer{reader: r}

	err := c.Consume(context.Background(), func(context.Context, kafka.Message) error {
		return errors.New("disk full")
	})

	assert.ErrorContains(t, err, "offset 7")
	assert.Empty(t, r.committed)
}

func TestNilClose(t *testing.T) {
	var p *Producer
	var c *Consumer
	assert.NoError(t, p.Close())
	assert.NoError(t, c.Close())
}
