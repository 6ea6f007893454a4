package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "kafkaflow-tail",
		Usage: "Print Kafka records as normalized kafkaflow messages",
		Commands: []*cli.Command{
			{
				Name:   "tail",
				Usage:  "Consume topics and print one JSON line per message",
				Flags:  tailFlags(),
				Action: run,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
