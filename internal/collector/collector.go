package collector

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TopicsAPI is the subset of the SNS client the collector uses.
type TopicsAPI interface {
	sns.ListTopicsAPIClient

	GetTopicAttributes(
		ctx context.Context,
		params *sns.GetTopicAttributesInput,
		optFns ...func(*sns.Options),
	) (*sns.GetTopicAttributesOutput, error)
}

// ClientFactory builds the SNS client for a region.
type ClientFactory func(region string) TopicsAPI

// Collector fetches SNS topic inventory one region at a time.
type Collector struct {
	mu        sync.RWMutex // Protects clients map for concurrent access
	clients   map[string]TopicsAPI
	newClient ClientFactory
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for per-topic warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) {
		c.log = l
	}
}

// New creates a Collector whose regional clients are built from cfg.
func New(cfg aws.Config, requestsPerSecond float64, opts ...Option) *Collector {
	return NewWithFactory(func(region string) TopicsAPI {
		return sns.NewFromConfig(cfg, func(o *sns.Options) {
			o.Region = region
		})
	}, requestsPerSecond, opts...)
}

// NewWithFactory creates a Collector with a custom client factory.
// A non-positive requestsPerSecond disables pacing.
func NewWithFactory(factory ClientFactory, requestsPerSecond float64, opts ...Option) *Collector {
	limit, burst := rate.Inf, 0
	if requestsPerSecond > 0 {
		limit, burst = rate.Limit(requestsPerSecond), max(1, int(requestsPerSecond*2))
	}

	c := &Collector{
		clients:   make(map[string]TopicsAPI),
		newClient: factory,
		limiter:   rate.NewLimiter(limit, burst),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getClient returns the cached client for the region, or creates a new one.
func (c *Collector) getClient(region string) TopicsAPI {
	c.mu.RLock()
	client, exists := c.clients[region]
	c.mu.RUnlock()
	if exists {
		return client
	}

	newClient := c.newClient(region)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have stored a client while we built ours.
	if existing, exists := c.clients[region]; exists {
		return existing
	}
	c.clients[region] = newClient
	return newClient
}
