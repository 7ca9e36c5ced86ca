package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"autoblock/config"
	"autoblock/logging"
)

const usage = `Usage: autoblock [flags] run <log-uri>...
       autoblock [flags] schedule

A log uri is s3://bucket/key or a local file path.

Flags:
`

// Dependency injection composition root
func main() {
	configPath := flag.String("config", "", "path of the YAML config file. Without it configuration comes from the environment only.")
	envFile := flag.String("envfile", ".env", "dotenv file providing environment variables not set in the process environment. Ignored when missing.")
	logLevel := flag.String("loglevel", "info", "sets log level. Can be one of: debug, info, warn, error, fatal, panic.")
	pretty := flag.Bool("pretty", false, "human readable console logs instead of JSON lines")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := logging.NewLogger(*logLevel, *pretty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while loading configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(logger, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while creating log handler")
	}
	defer a.close()

	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "run":
		if len(args) == 0 {
			logger.Fatal().Msg("The run command needs at least one log uri")
		}
		if err = a.run(ctx, args); err != nil {
			logger.Error().Err(err).Msg("Run failed")
			a.close()
			os.Exit(1)
		}
	case "schedule":
		if err = a.schedule(ctx); err != nil {
			logger.Error().Err(err).Msg("Scheduler failed")
			a.close()
			os.Exit(1)
		}
	default:
		logger.Error().Str("command", cmd).Msg("Unknown command")
		a.close()
		flag.Usage()
		os.Exit(2)
	}
}
