// Package events lets several client instances tell each other that the
// shared document list changed. Messages travel over watermill, in memory by
// default or over Redis Streams (see pkg/redisstream).
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const TopicDocuments = "kbassist.documents"

type EventType string

const (
	EventDocumentUploaded  EventType = "document-uploaded"
	EventDocumentsCleared  EventType = "documents-cleared"
	EventDocumentsReloaded EventType = "documents-reloaded"
)

type Event struct {
	Type   EventType `json:"type"`
	Origin string    `json:"origin"`
	// Count is the number of documents the sender saw after the change.
	Count int `json:"count"`
}

type Bus struct {
	origin     string
	publisher  message.Publisher
	subscriber message.Subscriber

	closeOnce sync.Once
	closeErr  error
}

type Option func(*Bus)

// WithOrigin overrides the random instance id stamped on published events.
func WithOrigin(origin string) Option {
	return func(b *Bus) {
		b.origin = origin
	}
}

func NewBus(pub message.Publisher, sub message.Subscriber, options ...Option) *Bus {
	b := &Bus{
		origin:     uuid.NewString(),
		publisher:  pub,
		subscriber: sub,
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// NewInMemoryBus connects publishers and subscribers within one process.
func NewInMemoryBus(logger watermill.LoggerAdapter, options ...Option) *Bus {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger)
	return NewBus(ch, ch, options...)
}

func (b *Bus) Origin() string {
	return b.origin
}

// Publish stamps ev with this bus's origin and sends it.
func (b *Bus) Publish(ev Event) error {
	ev.Origin = b.origin
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.publisher.Publish(TopicDocuments, msg); err != nil {
		return errors.Wrapf(err, "publish %s", ev.Type)
	}
	return nil
}

// Subscribe delivers decoded events until ctx is done. Undecodable messages
// are logged and acked.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := b.subscriber.Subscribe(ctx, TopicDocuments)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to documents topic")
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed event")
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		err := b.publisher.Close()
		if b.subscriber != nil && any(b.subscriber) != any(b.publisher) {
			if serr := b.subscriber.Close(); err == nil {
				err = serr
			}
		}
		b.closeErr = err
	})
	return b.closeErr
}
