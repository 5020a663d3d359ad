package main

import (
	"fmt"
	"os"

	"github.com/jscyril/moz/internal/cli"
	"github.com/jscyril/moz/internal/config"
	"github.com/jscyril/moz/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Setup(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := log.Setup(config.Load().Logs); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	return cli.Execute()
}
