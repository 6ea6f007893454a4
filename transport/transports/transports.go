// Package transports imports all built-in transports for auto-registration.
// Import this package to have all transports registered with the default registry.
package transports

import (
	// Import all transports for side-effect registration
	_ "github.com/drblury/kafkaflow/transport/aws"
	_ "github.com/drblury/kafkaflow/transport/channel"
	_ "github.com/drblury/kafkaflow/transport/http"
	_ "github.com/drblury/kafkaflow/transport/kafka"
	_ "github.com/drblury/kafkaflow/transport/nats"
	_ "github.com/drblury/kafkaflow/transport/rabbitmq"
	_ "github.com/drblury/kafkaflow/transport/sqs"
)
