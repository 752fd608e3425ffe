package anonymizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	dcm "oct-dicom/internal/dicom"
	"oct-dicom/internal/progress"
	"oct-dicom/internal/spectralis"
)

// DefaultOutputDir is the folder created inside the input folder when no
// output folder is given.
const DefaultOutputDir = "anonymized"

// Config holds the batch export configuration
type Config struct {
	InputFolder      string
	OutputFolder     string // defaults to <InputFolder>/anonymized
	Recursive        bool
	Workers          int // defaults to GOMAXPROCS
	DryRun           bool
	RetryFailed      bool
	DecompressJPEGLS bool
	Logger           zerolog.Logger
	OutputWriter     func(string) // human-facing output, defaults to stdout
}

// Stats holds processing statistics
type Stats struct {
	Pairs      int
	Success    int
	Failed     int
	Skipped    int
	SloMissing int
}

// Progress statuses reported to a ProgressCallback.
const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// ProgressCallback is called during processing to report progress
type ProgressCallback func(current, total int, name, status string)

// outputFolder returns the folder exports are written to.
func (cfg Config) outputFolder() string {
	if cfg.OutputFolder != "" {
		return cfg.OutputFolder
	}
	return filepath.Join(cfg.InputFolder, DefaultOutputDir)
}

func (cfg Config) workers() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ProcessFolder reads every B-scan/SLO pair under the input folder and
// writes one anonymized header document per pair. A failing pair is logged
// and counted but never stops the batch; cancelling ctx does.
func ProcessFolder(ctx context.Context, cfg Config, progressCb ProgressCallback) (*Stats, error) {
	output := cfg.OutputWriter
	if output == nil {
		output = func(s string) { fmt.Print(s) }
	}
	logger := cfg.Logger
	outputFolder := cfg.outputFolder()

	pairs, err := dcm.FindScanPairs(cfg.InputFolder, cfg.Recursive)
	if err != nil {
		return nil, fmt.Errorf("could not find DICOM files: %w", err)
	}

	if len(pairs) == 0 {
		output(fmt.Sprintf("No B-scan volumes found in %s\n", cfg.InputFolder))
		return &Stats{}, nil
	}

	output(fmt.Sprintf("Found %d B-scan volume(s) in %s\n", len(pairs), cfg.InputFolder))

	if cfg.DryRun {
		return dryRun(pairs, outputFolder, output), nil
	}

	if err := os.MkdirAll(outputFolder, 0755); err != nil {
		return nil, fmt.Errorf("could not create output folder: %w", err)
	}

	tracker := progress.NewTracker(filepath.Join(outputFolder, ".progress.json"), logger)
	errorLogger, err := progress.NewErrorLogger(filepath.Join(outputFolder, "errors.log"), logger)
	if err != nil {
		return nil, fmt.Errorf("could not create error logger: %w", err)
	}
	defer errorLogger.Close()

	if cfg.RetryFailed {
		tracker.ClearFailed()
	}

	stats := &Stats{Pairs: len(pairs)}
	var mu sync.Mutex
	done := 0

	report := func(name, status string) {
		if status != StatusProcessing {
			done++
		}
		if progressCb != nil {
			progressCb(done, len(pairs), name, status)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())

	for _, pair := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			inputs := []string{pair.BScan, pair.SLO}
			if tracker.IsProcessed(pair.BScan, inputs...) {
				mu.Lock()
				stats.Skipped++
				report(pair.Name, StatusSkipped)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report(pair.Name, StatusProcessing)
			mu.Unlock()

			outputPath := filepath.Join(outputFolder, pair.Name+".json")
			warning, processErr := exportPair(pair, outputPath, cfg.DecompressJPEGLS, logger)

			mu.Lock()
			defer mu.Unlock()
			if processErr != nil {
				stats.Failed++
				errMsg := processErr.Error()
				tracker.MarkError(pair.BScan, errMsg, inputs...)
				errorLogger.Log(pair.Name, errMsg)
				output(fmt.Sprintf("  Error: %s: %s\n", pair.Name, errMsg))
				report(pair.Name, StatusFailed)
				return nil
			}

			stats.Success++
			if warning == spectralis.WarningSloMissing {
				stats.SloMissing++
			}
			tracker.MarkSuccess(pair.BScan, outputPath, warning, inputs...)
			report(pair.Name, StatusSuccess)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	output(fmt.Sprintf("\n%s\n", strings.Repeat("=", 50)))
	output(fmt.Sprintf("Complete! %d succeeded, %d failed, %d skipped\n",
		stats.Success, stats.Failed, stats.Skipped))
	if stats.SloMissing > 0 {
		output(fmt.Sprintf("  %d volume(s) exported without an SLO image\n", stats.SloMissing))
	}
	output(fmt.Sprintf("  %s\n", errorLogger.Summary()))
	output(fmt.Sprintf("Output: %s\n", outputFolder))

	return stats, nil
}

// exportPair reads one pair and stores its anonymized header, returning the
// reader warning.
func exportPair(pair dcm.ScanPair, outputPath string, decompress bool, logger zerolog.Logger) (int, error) {
	res, err := spectralis.Read(pair.BScan, pair.SLO,
		spectralis.WithLogger(logger),
		spectralis.WithJPEGLSDecompression(decompress),
	)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return 0, &WriteError{Path: outputPath, Err: err}
	}
	if _, err := SaveAnonymizedHeader(res.Volume(), outputPath, WithLogger(logger)); err != nil {
		return 0, err
	}
	return res.Warning, nil
}

// dryRun lists what would be exported without reading pixel data or writing anything
func dryRun(pairs []dcm.ScanPair, outputFolder string, output func(string)) *Stats {
	output("\n[DRY RUN] Would export:\n")

	stats := &Stats{Pairs: len(pairs), Skipped: len(pairs)}
	for _, pair := range pairs {
		slo := filepath.Base(pair.SLO)
		if pair.SLO == "" {
			slo = "no SLO"
			stats.SloMissing++
		}
		compressed := ""
		if pair.Compressed {
			compressed = " [JPEG-LS]"
		}
		output(fmt.Sprintf("  %s <- %s + %s%s\n",
			filepath.Join(outputFolder, pair.Name+".json"), filepath.Base(pair.BScan), slo, compressed))
	}

	output(fmt.Sprintf("\n%d volume(s), %d without SLO\n", stats.Pairs, stats.SloMissing))
	return stats
}
