package bin

import (
	"context"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// buildPubSubClient helper function for defining the GCP PubSub client
func buildPubSubClient(ctxt context.Context, gcpProject string) (goutils.PubSubClient, error) {
	rawPSClient, err := goutils.CreateBasicGCPPubSubClient(ctxt, gcpProject)
	if err != nil {
		log.WithError(err).Error("Failed to create core PubSub client")
		return nil, err
	}

	// Define PubSub client
	psClient, err := goutils.GetNewPubSubClientInstance(rawPSClient, log.Fields{
		"module": "go-utils", "component": "pubsub-client", "project": gcpProject,
	}, nil)
	if err != nil {
		log.WithError(err).Error("Failed to create PubSub client")
		return nil, err
	}

	// Sync PubSub client with currently existing topics
	if err := psClient.UpdateLocalTopicCache(ctxt); err != nil {
		log.WithError(err).Error("Errored when syncing existing topics in GCP project")
		return nil, err
	}

	return psClient, nil
}
