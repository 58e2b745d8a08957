package utils

import (
	"context"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// Broadcaster relays messages to devices outside this process
type Broadcaster interface {
	/*
		Broadcast send a message out

			@param ctxt context.Context - execution context
			@param message []byte - message payload
	*/
	Broadcast(ctxt context.Context, message []byte) error
}

// pubsubBroadcasterImpl implements Broadcaster on a PubSub topic
type pubsubBroadcasterImpl struct {
	goutils.Component
	client goutils.PubSubClient
	topic  string
}

/*
NewPubSubBroadcaster define a new PubSub message broadcaster

	@param ctxt context.Context - execution context
	@param client goutils.PubSubClient - PubSub client
	@param topic string - the topic to publish on
	@returns new Broadcaster
*/
func NewPubSubBroadcaster(
	ctxt context.Context, client goutils.PubSubClient, topic string,
) (Broadcaster, error) {
	logTags := log.Fields{"module": "utils", "component": "pubsub-broadcaster", "topic": topic}

	// The local topic cache must know the topic before publishing
	if err := client.UpdateLocalTopicCache(ctxt); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to sync PubSub topic cache")
		return nil, err
	}

	return &pubsubBroadcasterImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		client: client,
		topic:  topic,
	}, nil
}

func (b *pubsubBroadcasterImpl) Broadcast(ctxt context.Context, message []byte) error {
	logTags := b.GetLogTagsForContext(ctxt)
	if _, err := b.client.Publish(ctxt, b.topic, message, nil, true); err != nil {
		log.WithError(err).WithFields(logTags).Error("Broadcast publish failed")
		return err
	}
	return nil
}
