// Package pubsub wraps the Pub/Sub v2 client with the project's resource
// naming and config conventions.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/fieldops-io/assettrack-backend/pkg/config"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoSubscription    = errors.New("pubsub subscription name is required")
)

type Client struct {
	raw     *pubsub.Client
	project string
	naming  config.PubSubConfig
}

// NewClient creates a Pub/Sub v2 client and verifies the configured domain
// subscription exists before handing the client out.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}

	inner, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{raw: inner, project: project, naming: cfg}
	if err := c.checkDomainSubscription(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

// Subscription returns a Subscriber handle for a subscription ID or full
// resource name, or nil when the name cannot be resolved.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.raw == nil {
		return nil
	}
	full := c.resourceName("subscriptions", name)
	if full == "" {
		return nil
	}
	return c.raw.Subscriber(full)
}

// DomainSubscription returns the handle for the configured domain event
// subscription.
func (c *Client) DomainSubscription() *pubsub.Subscriber {
	return c.Subscription(c.naming.DomainSubscription)
}

// Publisher returns a publisher handle for a topic ID or full resource name,
// or nil when the name cannot be resolved.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.raw == nil {
		return nil
	}
	full := c.resourceName("topics", name)
	if full == "" {
		return nil
	}
	return c.raw.Publisher(full)
}

// DomainPublisher returns the publisher for the configured domain event topic.
func (c *Client) DomainPublisher() *pubsub.Publisher {
	return c.Publisher(c.naming.DomainTopic)
}

// Ping verifies connectivity by looking up the configured subscription.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.checkDomainSubscription(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) checkDomainSubscription(ctx context.Context) error {
	name := strings.TrimSpace(c.naming.DomainSubscription)
	if name == "" {
		return errNoSubscription
	}
	full := c.resourceName("subscriptions", name)
	if full == "" {
		return fmt.Errorf("subscription %q not configured", name)
	}

	_, err := c.raw.SubscriptionAdminClient.GetSubscription(
		ctx,
		&pubsubpb.GetSubscriptionRequest{Subscription: full},
	)
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("subscription %q does not exist", name)
	default:
		return fmt.Errorf("checking subscription %q: %w", name, err)
	}
}

// resourceName expands a bare ID into a full resource name under the
// configured project. Names already qualified with projects/ pass through.
func (c *Client) resourceName(kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	if c.project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.project, kind, n)
}
