/*
Package runtime turns consumed Kafka records into canonical messages and runs
handlers over them.

# Architecture Overview

Record handlers are served by a Watermill router subscribed through the
configured transport. Batch handlers run their own fetch loop over a
BatchSource, normally confluent.BatchConsumer. Both paths share the same
pipeline:

 1. install the handler context (consumer and ack policy) on ctx
 2. normalize with parser.ParseMessage or parser.ParseMessageBatch
 3. decode with the handler's decoder, the codec resolver by default
 4. call the handler
 5. wrap the result with response.EnsureResponse and publish it to the
    reply_to topic, or the registration's PublishTopic

# Package Structure

## Core Service (service.go)

Service owns the router, the transports built by the transport factory,
the codec resolver, the Prometheus registry and the HTTP servers exposing
/metrics and /handlers.

## Handler Registration (registration*.go, batch.go)

  - registration.go: per-record handlers with an arbitrary decoder
  - registration_json.go: handlers receiving a typed JSON body
  - registration_proto.go: handlers receiving a typed protobuf body
  - batch.go: batch handlers and the fetch loop

## Middleware (middleware.go)

Record handlers run behind log, tracing, metrics, retry, poison queue and
panic recovery middleware. Unprocessable messages are not retried.

## Hooks (hooks.go)

JobHooks observe every handler invocation, record or batch.

# Sub-packages

  - message/: canonical message, records and the handler context
  - parser/: normalizers and decode steps
  - response/: reply envelope
  - records/: record adapters for confluent-kafka-go, sarama and Watermill
  - codec/: content-type resolver, encoder and proto registry
  - confluent/: batch consumer
  - config/, errors/, headers/, ids/, logging/: shared plumbing
  - transport/: builds the consume and reply transports

# Usage Example

	conf, _ := kafkaflow.LoadConfigFromEnv()
	svc := kafkaflow.NewService(conf, logger, ctx, kafkaflow.ServiceDependencies{})

	kafkaflow.RegisterJSONHandler(svc, kafkaflow.JSONHandlerRegistration[Order]{
		Name:         "orders",
		Topic:        "orders.created",
		PublishTopic: "orders.processed",
		AckPolicy:    kafkaflow.AckPolicyAuto,
		Handler:      processOrder,
	})

	svc.Start(ctx)
*/
package runtime
