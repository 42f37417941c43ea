package queue

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSQueue publishes jobs on a subject and consumes them through a queue
// group so several workers share the load.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
	group   string
	log     *zap.Logger
}

// DialNATS connects with reconnect handling and returns a queue on subject.
func DialNATS(url, subject string, log *zap.Logger) (*NATSQueue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("codingclub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(10 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return NewNATSQueue(conn, subject, log), nil
}

// NewNATSQueue wraps an existing connection.
func NewNATSQueue(conn *nats.Conn, subject string, log *zap.Logger) *NATSQueue {
	if subject == "" {
		subject = "club.jobs"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSQueue{conn: conn, subject: subject, group: "club-workers", log: log}
}

// Publish sends the message with its type in a header.
func (q *NATSQueue) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := nats.NewMsg(q.subject)
	m.Header.Set("Type", msg.Type)
	m.Data = msg.Body
	return q.conn.PublishMsg(m)
}

// Consume subscribes in the worker queue group until ctx is done.
func (q *NATSQueue) Consume(ctx context.Context) (<-chan Message, error) {
	raw := make(chan *nats.Msg, 64)
	sub, err := q.conn.ChanQueueSubscribe(q.subject, q.group, raw)
	if err != nil {
		return nil, err
	}
	out := make(chan Message)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				q.log.Warn("nats unsubscribe failed", zap.Error(err))
			}
		}()
		for {
			select {
			case m := <-raw:
				msg := Message{Type: m.Header.Get("Type"), Body: m.Data}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Healthy reports whether the connection is up.
func (q *NATSQueue) Healthy() bool {
	return q.conn != nil && q.conn.IsConnected()
}

func (q *NATSQueue) Close() {
	if q.conn != nil {
		_ = q.conn.Drain()
	}
}
