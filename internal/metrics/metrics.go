// Package metrics holds the prometheus collectors for the chat core,
// registered on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialchat_connections_active",
		Help: "Live websocket connections.",
	})

	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialchat_messages_sent_total",
		Help: "Messages persisted, by target kind.",
	}, []string{"kind"}) // direct | group

	MessagesDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialchat_messages_denied_total",
		Help: "Sends rejected by the authorization gate.",
	})

	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialchat_notifications_dispatched_total",
		Help: "Push notification dispatch attempts, by outcome.",
	}, []string{"outcome"}) // sent | skipped | failed
)
