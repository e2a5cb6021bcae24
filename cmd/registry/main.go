// Package main provides the undername registry operator command.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/permasite/undernames/internal/cmd/registry"
	platformcmd "github.com/permasite/undernames/internal/platform/cmd"
	"github.com/permasite/undernames/internal/platform/config"
)

func main() {
	cfg, err := registry.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceRegistry, func(ctx context.Context) error {
		return registry.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
