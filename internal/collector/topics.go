package collector

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// ListTopics returns the ARNs of every topic in the region, all pages
// concatenated in the order the API delivers them.
func (c *Collector) ListTopics(ctx context.Context, region string) ([]string, error) {
	client := c.getClient(region)
	paginator := sns.NewListTopicsPaginator(client, &sns.ListTopicsInput{})

	var arns []string
	for paginator.HasMorePages() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list topics in %s: %w", region, err)
		}
		for _, t := range page.Topics {
			arns = append(arns, aws.ToString(t.TopicArn))
		}
	}

	return arns, nil
}

// GetTopicAttributes returns the attribute bag of one topic, or nil when it
// could not be fetched. Failures are logged, not returned.
func (c *Collector) GetTopicAttributes(ctx context.Context, arn, region string) map[string]string {
	if err := c.limiter.Wait(ctx); err != nil {
		c.log.Warn().Err(err).Str("topic_arn", arn).Msg("Rate limiter error, skipping topic attributes")
		return nil
	}

	out, err := c.getClient(region).GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
		TopicArn: aws.String(arn),
	})
	if err != nil {
		evt := c.log.Warn().Err(err).Str("topic_arn", arn).Str("region", region)
		if code, fault, ok := apiError(err); ok {
			evt = evt.Str("error_code", code).Str("fault", fault)
		}
		evt.Msg("Failed to get attributes for SNS topic")
		return nil
	}

	if out.Attributes == nil {
		return map[string]string{}
	}
	return out.Attributes
}
