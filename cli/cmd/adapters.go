package cmd

import (
	"fmt"

	"github.com/justapithecus/amiresolve/adapter"
	"github.com/justapithecus/amiresolve/adapter/redis"
	"github.com/justapithecus/amiresolve/adapter/webhook"
)

// buildAdapter constructs the adapter selected by ac.
func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Secret:  ac.secret,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:             ac.url,
			Channel:         ac.channel,
			LatestKeyPrefix: ac.latestKeyPrefix,
			LatestTTL:       ac.latestTTL,
			Timeout:         ac.timeout,
			Retries:         ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.adapterType)
	}
}
