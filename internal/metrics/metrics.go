// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "postify",
		Name:      "posts_published_total",
		Help:      "Posts that passed the monthly quota gate.",
	})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "postify",
		Name:      "quota_rejections_total",
		Help:      "Publish attempts rejected because the monthly quota was reached.",
	})

	FilesUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postify",
		Name:      "files_uploaded_total",
		Help:      "Objects written to storage, by kind.",
	}, []string{"kind"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postify",
		Name:      "stripe_webhook_events_total",
		Help:      "Verified Stripe webhook events, by type and outcome.",
	}, []string{"type", "outcome"})

	BlogCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postify",
		Name:      "blog_cache_lookups_total",
		Help:      "Blog cache lookups, by result.",
	}, []string{"result"})

	QuotaResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "postify",
		Name:      "quota_resets_total",
		Help:      "Completed monthly quota reset runs.",
	})
)
