package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/drblury/kafkaflow/internal/runtime/confluent"
)

// Config holds all configuration for the tail command.
type Config struct {
	Verbose bool

	Consumer confluent.Config

	BatchSize int
	BatchWait time.Duration
	Limit     int
	Commit    bool
}

// buildConfig builds a Config from CLI context flags.
func buildConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Verbose: c.Bool("verbose"),
		Consumer: confluent.Config{
			Brokers:         splitList(c.String("bootstrap-servers")),
			GroupID:         c.String("group-id"),
			ClientID:        c.String("client-id"),
			Topics:          splitList(c.String("topics")),
			AutoOffsetReset: c.String("auto-offset-reset"),
		},
		BatchSize: c.Int("batch-size"),
		BatchWait: c.Duration("batch-wait"),
		Limit:     c.Int("limit"),
		Commit:    c.Bool("commit"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if len(c.Consumer.Brokers) == 0 {
		errs = append(errs, errors.New("bootstrap-servers must not be empty"))
	}
	if len(c.Consumer.Topics) == 0 {
		errs = append(errs, errors.New("topics must not be empty"))
	}
	switch c.Consumer.AutoOffsetReset {
	case "earliest", "latest", "none":
	default:
		errs = append(errs, fmt.Errorf("auto-offset-reset must be earliest, latest or none, got %q", c.Consumer.AutoOffsetReset))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch-size must be positive, got %d", c.BatchSize))
	}
	if c.BatchWait <= 0 {
		errs = append(errs, fmt.Errorf("batch-wait must be positive, got %s", c.BatchWait))
	}
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit must not be negative, got %d", c.Limit))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
