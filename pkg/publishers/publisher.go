package publishers

import (
	"context"
	"errors"
)

// Publisher sends events to a downstream sink (HTTP, SQS, SNS, Pub/Sub).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// sender delivers a single event to a concrete sink.
type sender interface {
	Send(ctx context.Context, evt Event) error
}

// senderPublisher adapts a sender to the Publisher interface.
type senderPublisher struct {
	id     string
	typ    string
	sender sender
}

func (p *senderPublisher) ID() string   { return p.id }
func (p *senderPublisher) Type() string { return p.typ }

func (p *senderPublisher) Publish(ctx context.Context, evt Event) error {
	if p.sender == nil {
		return errors.New("publisher has no sender")
	}
	return p.sender.Send(ctx, evt)
}

// Close releases the sender when it holds client resources.
func (p *senderPublisher) Close() error {
	if c, ok := p.sender.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Logger is the structured logging surface publishers write to.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type discardLogger struct{}

func (discardLogger) InfoObj(string, string, interface{})  {}
func (discardLogger) DebugObj(string, string, interface{}) {}
func (discardLogger) WarnObj(string, string, interface{})  {}
func (discardLogger) ErrorObj(string, string, interface{}) {}

func orDiscard(log Logger) Logger {
	if log == nil {
		return discardLogger{}
	}
	return log
}
