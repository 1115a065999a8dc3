package notify

import "context"

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// KafkaSink streams notifications to a topic keyed by order so that events
// of one order stay on one partition.
type KafkaSink struct {
	Producer EventPublisher
	Topic    string
}

func (k *KafkaSink) Publish(ctx context.Context, ev Event) error {
	key := ev.OrderID
	if key == "" {
		key = ev.Type
	}
	return k.Producer.PublishEvent(ctx, k.Topic, key, ev)
}
