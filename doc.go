// Package kafkaflow normalizes Kafka records into canonical messages and runs
// handlers over them on top of Watermill.
//
// ParseMessage turns one record into a Message and ParseMessageBatch turns an
// ordered group of records into a BatchMessage. Both read reply_to,
// content-type and correlation_id from the record headers and derive the
// message id from the log position: "offset-timestamp" for a record and
// "first-last-timestamp" for a batch. Decoding is a separate step delegated to
// a Decoder, by default a Resolver keyed on the content type.
//
// Service hosts the pipeline. RegisterHandler, RegisterJSONHandler and
// RegisterProtoHandler subscribe per-record handlers through the configured
// transport (Kafka, or in-memory channels for tests). RegisterBatchHandler
// runs a fetch loop over a BatchSource such as the confluent-kafka-go
// BatchConsumer. A handler's result is wrapped in a Response and published to
// the reply_to topic of the message, or to the registration's PublishTopic.
//
// # Transports
//
// Records are consumed from:
//   - kafka: watermill-kafka consumer groups
//   - channel: in-memory Go channels that stamp offsets, for tests
//
// Replies may go to any of those or to a reply-only sink selected with
// Config.ReplyTransport: nats, rabbitmq, http, aws (SNS) or sqs.
//
// # Acknowledgment
//
// AckPolicyAuto commits after the handler and its reply succeeded. Any other
// policy, including the zero value, leaves acknowledgment to the handler via
// Message.Ack and Message.Nack.
//
// # Middleware
//
// Record handlers run behind structured logging, OpenTelemetry tracing,
// Prometheus metrics, retry with exponential backoff, poison queue forwarding
// and panic recovery. Messages whose headers or body cannot be decoded are not
// retried. Custom middleware can be added via ServiceDependencies.Middlewares.
package kafkaflow
