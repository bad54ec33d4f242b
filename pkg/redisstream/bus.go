package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/go-go-golems/kbassist/pkg/events"
	"github.com/go-go-golems/kbassist/pkg/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// BuildBus returns an events.Bus backed by Redis Streams when enabled, and an
// in-memory bus otherwise.
//
// Every instance must see every event, so unless a group is configured each
// bus gets a consumer group of its own, created at the stream tail.
func BuildBus(ctx context.Context, s Settings) (*events.Bus, error) {
	logger := logging.NewWatermill(log.Logger)
	origin := uuid.NewString()
	if !s.Enabled {
		return events.NewInMemoryBus(logger, events.WithOrigin(origin)), nil
	}

	group := s.Group
	if group == "" {
		group = "kbassist-" + origin
	}

	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", s.Addr)
	}
	if err := EnsureGroupAtTail(ctx, client, events.TopicDocuments, group); err != nil {
		_ = client.Close()
		return nil, err
	}

	pub, sub, err := newPubSub(client, group, s.Consumer, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Info().Str("addr", s.Addr).Str("group", group).Str("consumer", s.Consumer).Msg("using redis streams event bus")
	return events.NewBus(pub, sub, events.WithOrigin(origin)), nil
}

func newPubSub(client redis.UniversalClient, group, consumer string, logger watermill.LoggerAdapter) (*rstream.Publisher, *rstream.Subscriber, error) {
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create redis publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: group,
		Consumer:      consumer,
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create redis subscriber")
	}
	return pub, sub, nil
}

// EnsureGroupAtTail creates the consumer group for stream at the tail ($) if
// it doesn't exist, so a new instance does not replay old events.
func EnsureGroupAtTail(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrapf(err, "create consumer group %s on %s", group, stream)
	}
	log.Debug().Str("stream", stream).Str("group", group).Msg("created redis consumer group at tail")
	return nil
}
