package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"oct-dicom/internal/cli"
	"oct-dicom/internal/config"
	"oct-dicom/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("octexport", flag.ContinueOnError)
	fs.Usage = func() { cli.PrintUsage(os.Stdout) }

	configPath := fs.String("config", "", "TOML config file")

	input := fs.String("input", "", "Input folder containing DICOM files")
	inputShort := fs.String("i", "", "Input folder (shorthand)")

	output := fs.String("output", "", "Output folder")
	outputShort := fs.String("o", "", "Output folder (shorthand)")

	bscan := fs.String("bscan", "", "B-scan volume of a single pair")
	slo := fs.String("slo", "", "SLO image of a single pair")
	out := fs.String("out", "", "Anonymized header JSON for a single pair")

	workers := fs.Int("workers", 0, "Parallel readers")
	workersShort := fs.Int("w", 0, "Parallel readers (shorthand)")

	recursive := fs.Bool("recursive", true, "Search subdirectories")
	recursiveShort := fs.Bool("r", true, "Recursive (shorthand)")

	retry := fs.Bool("retry", false, "Retry previously failed scans")

	dryRun := fs.Bool("dry-run", false, "Preview only, nothing is written")
	dryRunShort := fs.Bool("n", false, "Dry run (shorthand)")

	logLevel := fs.String("log-level", "", "Log level")
	decompress := fs.Bool("decompress-jpegls", true, "Decompress JPEG-LS files with dcmtk")

	help := fs.Bool("help", false, "Show help message")
	helpShort := fs.Bool("h", false, "Help (shorthand)")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if *help || *helpShort {
		cli.PrintUsage(os.Stdout)
		return nil
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags given on the command line win over the config file.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	pick := func(long, short *string, longName, shortName string, dst *string) {
		switch {
		case set[longName]:
			*dst = *long
		case set[shortName]:
			*dst = *short
		}
	}
	pick(input, inputShort, "input", "i", &cfg.Input)
	pick(output, outputShort, "output", "o", &cfg.Output)
	pick(bscan, bscan, "bscan", "bscan", &cfg.BScan)
	pick(slo, slo, "slo", "slo", &cfg.SLO)
	pick(out, out, "out", "out", &cfg.Out)
	pick(logLevel, logLevel, "log-level", "log-level", &cfg.LogLevel)

	switch {
	case set["workers"]:
		cfg.Workers = *workers
	case set["w"]:
		cfg.Workers = *workersShort
	}
	if set["recursive"] || set["r"] {
		cfg.Recursive = *recursive && *recursiveShort
	}
	if set["retry"] {
		cfg.Retry = *retry
	}
	if set["dry-run"] || set["n"] {
		cfg.DryRun = *dryRun || *dryRunShort
	}
	if set["decompress-jpegls"] {
		cfg.DecompressJPEGLS = *decompress
	}

	if cfg.Input == "" && cfg.BScan == "" {
		cli.PrintUsage(os.Stdout)
		return fmt.Errorf("either an input folder or a B-scan file is required")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}

	logCfg := logging.Runtime()
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.Level = level
	logCfg, err = logging.FromEnv(logCfg)
	if err != nil {
		return err
	}
	logger := logging.Init("octexport", logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Run(ctx, cli.Options{
		InputFolder:      cfg.Input,
		OutputFolder:     cfg.Output,
		BScan:            cfg.BScan,
		SLO:              cfg.SLO,
		Out:              cfg.Out,
		Workers:          cfg.Workers,
		Recursive:        cfg.Recursive,
		RetryFailed:      cfg.Retry,
		DryRun:           cfg.DryRun,
		DecompressJPEGLS: cfg.DecompressJPEGLS,
		Logger:           logger,
	})
}
