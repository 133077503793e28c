package topic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedARN is returned for a topic identifier without an ARN separator.
var ErrMalformedARN = errors.New("malformed topic ARN")

// Name extracts the topic name from its ARN,
// arn:aws:sns:region:account-id:topic-name -> topic-name.
func Name(arn string) (string, error) {
	i := strings.LastIndex(arn, ":")
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedARN, arn)
	}
	return arn[i+1:], nil
}

// Transform maps topic ARNs and their attribute bags to records, one per
// ARN and in the same order. A missing bag yields defaulted fields.
func Transform(arns []string, attributes map[string]map[string]string, region string) ([]Record, error) {
	records := make([]Record, 0, len(arns))
	for _, arn := range arns {
		name, err := Name(arn)
		if err != nil {
			return nil, err
		}

		attrs := attributes[arn]
		rec := Record{
			TopicArn:                arn,
			TopicName:               name,
			DisplayName:             attrs[KeyDisplayName],
			Owner:                   attrs[KeyOwner],
			DeliveryPolicy:          attrs[KeyDeliveryPolicy],
			EffectiveDeliveryPolicy: attrs[KeyEffectiveDeliveryPolicy],
			KmsMasterKeyID:          attrs[KeyKmsMasterKeyID],
			Region:                  region,
		}

		counters := []struct {
			key string
			dst *int64
		}{
			{KeySubscriptionsPending, &rec.SubscriptionsPending},
			{KeySubscriptionsConfirmed, &rec.SubscriptionsConfirmed},
			{KeySubscriptionsDeleted, &rec.SubscriptionsDeleted},
		}
		for _, c := range counters {
			raw, ok := attrs[c.key]
			if !ok {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("topic %s attribute %s: %w", arn, c.key, err)
			}
			*c.dst = n
		}

		records = append(records, rec)
	}
	return records, nil
}
