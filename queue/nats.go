package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/5l1v3r1/plaso/errors"
)

// natsFetchWait bounds one broker fetch so Pop can observe ctx between
// attempts.
const natsFetchWait = 500 * time.Millisecond

// envelope is the wire form of a queue item. The sentinel travels in-band
// like any other item so that work-queue delivery semantics apply to it.
type envelope[T any] struct {
	End  bool `json:"end_of_input,omitempty"`
	Item T    `json:"item,omitempty"`
}

// NATS is the broker-backed queue variant used for multi-process runs: the
// collector and each worker process connect to the same JetStream
// work-queue stream, which provides single delivery, buffering and
// backpressure across process boundaries. Items must be JSON-serializable.
type NATS[T any] struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	subject  string
	name     string
}

// NewNATS connects to the broker at url and binds (creating when absent) a
// work-queue stream and shared durable consumer for the given queue name.
// Every process sharing one pipeline queue uses the same name.
func NewNATS[T any](ctx context.Context, url, name string) (*NATS[T], error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, errors.WrapTransient(err, "NATS", "NewNATS", "broker connect")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapTransient(err, "NATS", "NewNATS", "jetstream context")
	}

	streamName := "PLASO_" + strings.ToUpper(name)
	subject := "plaso." + name

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.MemoryStorage,
	})
	if err != nil {
		conn.Close()
		return nil, errors.WrapTransient(err, "NATS", "NewNATS", "stream create")
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   streamName,
		AckPolicy: jetstream.AckExplicitPolicy,
	})
	if err != nil {
		conn.Close()
		return nil, errors.WrapTransient(err, "NATS", "NewNATS", "consumer create")
	}

	return &NATS[T]{
		conn:     conn,
		js:       js,
		stream:   stream,
		consumer: consumer,
		subject:  subject,
		name:     name,
	}, nil
}

// Push publishes one item to the work-queue stream. The broker applies its
// own limits; a full stream surfaces as a publish error, not a hang.
func (q *NATS[T]) Push(ctx context.Context, value T) error {
	return q.publish(ctx, envelope[T]{Item: value})
}

// SignalEndOfInput publishes the end-of-input sentinel.
func (q *NATS[T]) SignalEndOfInput(ctx context.Context) error {
	return q.publish(ctx, envelope[T]{End: true})
}

func (q *NATS[T]) publish(ctx context.Context, env envelope[T]) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.WrapInvalid(err, "NATS", "Push", "item serialization")
	}
	if _, err := q.js.Publish(ctx, q.subject, data); err != nil {
		return errors.WrapTransient(err, "NATS", "Push", "publish")
	}
	return nil
}

// Pop fetches the next item, blocking until one arrives or ctx is done.
func (q *NATS[T]) Pop(ctx context.Context) (T, error) {
	var zero T

	for {
		if err := ctx.Err(); err != nil {
			return zero, errors.WrapTransient(err, "NATS", "Pop", "waiting for item")
		}

		batch, err := q.consumer.Fetch(1, jetstream.FetchMaxWait(natsFetchWait))
		if err != nil {
			return zero, errors.WrapTransient(err, "NATS", "Pop", "fetch")
		}

		for msg := range batch.Messages() {
			var env envelope[T]
			if err := json.Unmarshal(msg.Data(), &env); err != nil {
				// A malformed message is abandoned, not redelivered forever.
				_ = msg.Ack()
				return zero, errors.WrapTransient(err, "NATS", "Pop", "item deserialization")
			}
			if err := msg.Ack(); err != nil {
				return zero, errors.WrapTransient(err, "NATS", "Pop", "ack")
			}
			if env.End {
				return zero, errors.ErrEndOfInput
			}
			return env.Item, nil
		}
		if err := batch.Error(); err != nil {
			return zero, errors.WrapTransient(err, "NATS", "Pop", "fetch batch")
		}
		// Empty fetch window; check ctx and try again.
	}
}

// Len consults stream info for the queued message count. When the broker
// cannot report one this fails loudly rather than returning a wrong size.
func (q *NATS[T]) Len() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), natsFetchWait)
	defer cancel()

	info, err := q.stream.Info(ctx)
	if err != nil {
		return 0, errors.WrapTransient(err, "NATS", "Len", "stream info")
	}
	return int(info.State.Msgs), nil
}

// IsEmpty reports whether the stream currently holds no messages. A broker
// failure reads as non-empty so callers do not terminate early on an
// unreachable broker.
func (q *NATS[T]) IsEmpty() bool {
	n, err := q.Len()
	return err == nil && n == 0
}

// Close drains the connection. The stream itself is left for the other
// processes sharing it.
func (q *NATS[T]) Close() error {
	if q.conn == nil {
		return nil
	}
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return errors.WrapTransient(err, "NATS", "Close", "drain")
	}
	return nil
}
