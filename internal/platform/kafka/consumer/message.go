package consumer

import (
	"context"
	"time"
)

// Message is a broker record decoupled from the client library.
type Message struct {
	Topic       string
	Partition   int32
	Offset      int64
	LeaderEpoch int32
	Key         []byte
	Value       []byte
	Headers     map[string]string
	Timestamp   time.Time
}

// Disposition tells the consumer what to do with a handled message.
type Disposition int

const (
	// Acked messages are committed.
	Acked Disposition = iota
	// Nacked messages are redelivered until the retry policy dead-letters them.
	Nacked
)

func (d Disposition) String() string {
	if d == Nacked {
		return "nack"
	}
	return "ack"
}

// Result is a handler's verdict on one message.
type Result struct {
	Disposition Disposition
	Err         error
}

// Ack commits the message.
func Ack() Result { return Result{Disposition: Acked} }

// Nack requests redelivery, recording the cause.
func Nack(err error) Result { return Result{Disposition: Nacked, Err: err} }

// Handler processes one message. Malformed or irrelevant messages should be
// acked so they do not block the partition.
type Handler interface {
	Handle(ctx context.Context, msg *Message) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) Result

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) Result {
	return f(ctx, msg)
}
