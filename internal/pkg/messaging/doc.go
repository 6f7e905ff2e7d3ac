// Package messaging publishes and consumes broker messages behind one
// interface so modules do not depend on a specific broker.
//
// Drivers: NATS (queue subscriptions), NSQ (topic/channel), Kafka (consumer
// groups), Google Pub/Sub (subscriptions) and an in-process fan-out used by
// single-node deployments and tests. WithGroup names the NSQ channel, the NATS
// queue group, the Kafka group or the Pub/Sub subscription.
package messaging
