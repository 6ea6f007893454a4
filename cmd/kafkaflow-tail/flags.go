package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

// tailFlags returns the flags of the tail command.
func tailFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging on stderr",
		},
		// Kafka configuration flags
		&cli.StringFlag{
			Name:     "bootstrap-servers",
			Aliases:  []string{"b"},
			Usage:    "Kafka bootstrap servers (comma-separated)",
			EnvVars:  []string{"KAFKA_BOOTSTRAP_SERVERS"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "group-id",
			Aliases: []string{"g"},
			Usage:   "Kafka consumer group ID",
			EnvVars: []string{"KAFKA_GROUP_ID"},
			Value:   "kafkaflow-tail",
		},
		&cli.StringFlag{
			Name:     "topics",
			Aliases:  []string{"t"},
			Usage:    "Kafka topics to consume from (comma-separated)",
			EnvVars:  []string{"KAFKA_TOPICS"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "auto-offset-reset",
			Aliases: []string{"o"},
			Usage:   "Kafka auto offset reset policy (earliest, latest, none)",
			EnvVars: []string{"KAFKA_AUTO_OFFSET_RESET"},
			Value:   "earliest",
		},
		&cli.StringFlag{
			Name:    "client-id",
			Usage:   "Kafka client ID",
			EnvVars: []string{"KAFKA_CLIENT_ID"},
			Value:   "kafkaflow-tail",
		},
		// Output flags
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Maximum records fetched per poll",
			EnvVars: []string{"TAIL_BATCH_SIZE"},
			Value:   100,
		},
		&cli.DurationFlag{
			Name:    "batch-wait",
			Usage:   "Maximum time to wait for a full batch",
			EnvVars: []string{"TAIL_BATCH_WAIT"},
			Value:   time.Second,
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Stop after printing this many messages (0 = no limit)",
			EnvVars: []string{"TAIL_LIMIT"},
		},
		&cli.BoolFlag{
			Name:    "commit",
			Usage:   "Commit offsets after each printed batch",
			EnvVars: []string{"TAIL_COMMIT"},
		},
	}
}
