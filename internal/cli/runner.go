package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"oct-dicom/internal/anonymizer"
	dcm "oct-dicom/internal/dicom"
	"oct-dicom/internal/spectralis"
)

// Options holds CLI configuration options
type Options struct {
	InputFolder      string
	OutputFolder     string
	BScan            string
	SLO              string
	Out              string
	Workers          int
	Recursive        bool
	RetryFailed      bool
	DryRun           bool
	DecompressJPEGLS bool
	Logger           zerolog.Logger
	Stdout           io.Writer // defaults to os.Stdout
}

func (opts Options) stdout() io.Writer {
	if opts.Stdout != nil {
		return opts.Stdout
	}
	return os.Stdout
}

// Run executes a single-pair read when a B-scan is given, otherwise a batch
// export of the input folder.
func Run(ctx context.Context, opts Options) error {
	if opts.DecompressJPEGLS {
		checkDcmtkStatus(opts.stdout())
	}

	if opts.BScan != "" {
		return RunPair(opts)
	}
	return RunBatch(ctx, opts)
}

// RunBatch exports every scan pair under the input folder
func RunBatch(ctx context.Context, opts Options) error {
	w := opts.stdout()

	if opts.InputFolder == "" {
		return fmt.Errorf("input folder is required")
	}

	info, err := os.Stat(opts.InputFolder)
	if err != nil {
		return fmt.Errorf("input folder does not exist: %s", opts.InputFolder)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path is not a directory: %s", opts.InputFolder)
	}

	cfg := anonymizer.Config{
		InputFolder:      opts.InputFolder,
		OutputFolder:     opts.OutputFolder,
		Recursive:        opts.Recursive,
		Workers:          opts.Workers,
		DryRun:           opts.DryRun,
		RetryFailed:      opts.RetryFailed,
		DecompressJPEGLS: opts.DecompressJPEGLS,
		Logger:           opts.Logger,
		OutputWriter:     func(string) {}, // Suppress internal output, we use progress callback
	}
	if opts.DryRun {
		cfg.OutputWriter = func(s string) { fmt.Fprint(w, s) }
	}

	printHeader(w, opts)

	pb := newProgressBar(w, 50)
	progressCallback := func(current, total int, name, status string) {
		pb.update(current, total)
	}

	if opts.DryRun {
		fmt.Fprintln(w, "\n[DRY RUN MODE]")
	}
	fmt.Fprintln(w)

	stats, err := anonymizer.ProcessFolder(ctx, cfg, progressCallback)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	if !opts.DryRun && stats.Pairs > 0 {
		pb.update(stats.Pairs, stats.Pairs)
		fmt.Fprintln(w)
	}

	printSummary(w, stats, cfg)
	return nil
}

// RunPair reads one B-scan/SLO pair, prints what was read and, when an
// output path is set, stores the anonymized header there.
func RunPair(opts Options) error {
	w := opts.stdout()

	res, err := spectralis.Read(opts.BScan, opts.SLO,
		spectralis.WithLogger(opts.Logger),
		spectralis.WithJPEGLSDecompression(opts.DecompressJPEGLS),
	)
	if err != nil {
		return err
	}

	printResult(w, res)

	if opts.Out == "" {
		return nil
	}
	path, err := anonymizer.SaveAnonymizedHeader(res.Volume(), opts.Out, anonymizer.WithLogger(opts.Logger))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Output:    %s\n", path)
	return nil
}

// identityKeys are never echoed to the terminal.
var identityKeys = map[string]bool{
	spectralis.KeyID:        true,
	spectralis.KeyPatientID: true,
	spectralis.KeyDOB:       true,
}

func printResult(w io.Writer, res *spectralis.Result) {
	fmt.Fprintf(w, "Warning:   %d\n", res.Warning)

	n, rows, cols := res.BScans.Shape()
	fmt.Fprintf(w, "B-scans:   %d x %d x %d\n", n, rows, cols)
	if res.SLO != nil {
		sloRows, sloCols := res.SLO.Shape()
		fmt.Fprintf(w, "SLO:       %d x %d\n", sloRows, sloCols)
	} else {
		fmt.Fprintln(w, "SLO:       none")
	}

	keys := make([]string, 0, len(res.Header))
	for k := range res.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, k := range keys {
		v := res.Header[k]
		if identityKeys[k] {
			v = "<withheld>"
		}
		fmt.Fprintf(w, "%-24s %v\n", k, v)
	}
	fmt.Fprintln(w, strings.Repeat("-", 50))
}

// PrintUsage prints CLI usage information
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `OCT Export - Spectralis DICOM reader and header anonymizer

USAGE:
  octexport -bscan <file> [-slo <file>] [-out <file>]   Read one scan pair
  octexport -i <path> [flags]                           Export a folder

FLAGS:
      -config <path>        TOML file with default settings (flags override it)
  -i, -input <path>         Input folder containing Spectralis DICOM files
  -o, -output <path>        Output folder (default: {input}/anonymized)
      -bscan <file>         B-scan volume of a single pair
      -slo <file>           SLO image of a single pair (optional)
      -out <file>           Anonymized header JSON for a single pair
  -w, -workers <n>          Parallel readers (default: number of CPUs)
  -r, -recursive            Search subdirectories (default: true)
      -retry                Retry scans that failed in a previous run
  -n, -dry-run              Preview what will be exported, nothing is written
      -log-level <level>    debug, info, warn or error (default: info)
      -decompress-jpegls    Decompress JPEG-LS files with dcmtk (default: true)
  -h, -help                 Show this help message

ENVIRONMENT:
  OCTEXPORT_LOG_LEVEL, OCTEXPORT_LOG_NOCOLOR, OCTEXPORT_LOG_JSON

EXAMPLES:
  # Read a pair and print the header (identity fields withheld)
  octexport -bscan 00000011 -slo 00000010

  # Store the anonymized header of a pair
  octexport -bscan 00000011 -slo 00000010 -out scan.json

  # Preview a batch export
  octexport -i /data/spectralis -n

  # Export with 8 workers, retrying earlier failures
  octexport -i /data/spectralis -w 8 -retry

OUTPUT:
  Headers:   {output}/{relative path of the volume}.json
  Progress:  {output}/.progress.json
  Error log: {output}/errors.log

Warning 2003 means no SLO image was found for a volume; the SLO fields are
exported empty.`)
}

// printHeader prints the CLI header with configuration
func printHeader(w io.Writer, opts Options) {
	fmt.Fprintln(w, "OCT Export")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Input:     %s\n", opts.InputFolder)
	if opts.OutputFolder != "" {
		fmt.Fprintf(w, "Output:    %s\n", opts.OutputFolder)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	fmt.Fprintf(w, "Workers:   %d\n", workers)

	var options []string
	if opts.Recursive {
		options = append(options, "Recursive")
	}
	if opts.RetryFailed {
		options = append(options, "Retry failed")
	}
	if opts.DryRun {
		options = append(options, "Dry run")
	}
	if !opts.DecompressJPEGLS {
		options = append(options, "No JPEG-LS decompression")
	}
	if len(options) > 0 {
		fmt.Fprintf(w, "Options:   %s\n", strings.Join(options, ", "))
	}
}

// printSummary prints the processing summary
func printSummary(w io.Writer, stats *anonymizer.Stats, cfg anonymizer.Config) {
	if cfg.DryRun {
		return
	}
	output := cfg.OutputFolder
	if output == "" {
		output = filepath.Join(cfg.InputFolder, anonymizer.DefaultOutputDir)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Complete! %d succeeded, %d failed, %d skipped\n",
		stats.Success, stats.Failed, stats.Skipped)
	fmt.Fprintf(w, "Volumes:   %d total (%d without SLO)\n", stats.Pairs, stats.SloMissing)
	fmt.Fprintf(w, "Output:    %s\n", output)
}

// progressBar represents a terminal progress bar
type progressBar struct {
	w     io.Writer
	width int
}

// newProgressBar creates a new progress bar with specified width
func newProgressBar(w io.Writer, width int) *progressBar {
	return &progressBar{w: w, width: width}
}

// update updates the progress bar display
func (pb *progressBar) update(current, total int) {
	if total == 0 {
		return
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(pb.width))
	if filled > pb.width {
		filled = pb.width
	}

	bar := strings.Repeat("#", filled) + strings.Repeat("-", pb.width-filled)
	fmt.Fprintf(pb.w, "\r[%s] %3.0f%%  (%d/%d)", bar, percent*100, current, total)
}

// checkDcmtkStatus warns when dcmtk is missing. Uncompressed files are still
// processed; JPEG-LS files will fail.
func checkDcmtkStatus(w io.Writer) {
	if dcm.CheckDcmtkInstalled() {
		return
	}

	fmt.Fprintln(w, "Warning: dcmtk is not installed.")
	fmt.Fprintln(w, "dcmtk is required to read JPEG-LS compressed DICOM files.")
	if installCmd := getDcmtkInstallCommand(); installCmd != "" {
		fmt.Fprintf(w, "Install command: %s\n", installCmd)
	} else {
		fmt.Fprintln(w, "Please install dcmtk using your system package manager.")
	}
	fmt.Fprintln(w)
}

// getDcmtkInstallCommand returns the platform-specific installation command
func getDcmtkInstallCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "brew install dcmtk"
	case "linux":
		return "sudo apt-get update && sudo apt-get install -y dcmtk"
	default:
		return ""
	}
}
