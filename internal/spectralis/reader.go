// Package spectralis reads Heidelberg Spectralis OCT exports: a multi-frame
// B-scan volume and the SLO image captured with it.
package spectralis

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	dcm "oct-dicom/internal/dicom"
)

// WarningSloMissing is returned in Result.Warning when the SLO file does not exist.
const WarningSloMissing = 2003

// Stack is a B-scan volume indexed [frame][row][column].
type Stack [][][]int

// Image is a single 2-D image indexed [row][column].
type Image [][]int

// Shape returns the frame, row and column counts.
func (s Stack) Shape() (frames, rows, cols int) {
	if len(s) == 0 {
		return 0, 0, 0
	}
	frames, rows = len(s), len(s[0])
	if rows > 0 {
		cols = len(s[0][0])
	}
	return frames, rows, cols
}

// Shape returns the row and column counts.
func (im Image) Shape() (rows, cols int) {
	if len(im) == 0 {
		return 0, 0
	}
	return len(im), len(im[0])
}

// Result is the outcome of reading a B-scan/SLO pair.
type Result struct {
	Warning int // 0, or WarningSloMissing
	Header  Header
	BScans  Stack
	SLO     Image // nil when the SLO file is missing
}

// Option configures Read.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	decompress bool
}

// WithLogger sets the logger used for warnings and diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithJPEGLSDecompression controls whether JPEG-LS encoded files are
// decompressed through dcmtk before their pixel data is read. Enabled by default.
func WithJPEGLSDecompression(enabled bool) Option {
	return func(o *options) { o.decompress = enabled }
}

func newOptions(opts []Option) *options {
	o := &options{logger: zerolog.Nop(), decompress: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// open parses a file with pixel data, decompressing JPEG-LS through dcmtk when enabled.
func (o *options) open(path string) (*dcm.Dataset, error) {
	ds, err := dcm.ReadDicom(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	if !ds.IsJPEGLS() {
		return ds, nil
	}
	if !o.decompress {
		return nil, &FileError{Path: path, Err: fmt.Errorf("JPEG-LS decompression disabled: %w", dcm.ErrEncapsulatedPixelData)}
	}

	o.logger.Debug().Str("file", path).Msg("decompressing JPEG-LS pixel data")
	tmp, err := dcm.DecompressJPEGLS(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer os.Remove(tmp)

	ds, err = dcm.ReadDicom(tmp)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	ds.FilePath = path
	return ds, nil
}

// Read extracts the merged header and pixel arrays from a B-scan volume and
// its SLO image. A missing SLO file is not an error: Result.Warning is set to
// WarningSloMissing and the SLO fields hold the empty placeholder. Any failure
// to read the B-scan is fatal and no partial result is returned.
func Read(bscanPath, sloPath string, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	res := &Result{}

	sloHeader := emptySLOHeader()
	if fileExists(sloPath) {
		h, img, err := readSLO(sloPath, o)
		if err != nil {
			return nil, err
		}
		sloHeader, res.SLO = h, img
	} else {
		res.Warning = WarningSloMissing
		o.logger.Warn().
			Str("slo", sloPath).
			Int("warning", WarningSloMissing).
			Msg("SLO file not found, continuing without SLO")
	}

	ds, err := o.open(bscanPath)
	if err != nil {
		return nil, err
	}

	header := resolveBScanHeader(ds)

	frames, err := ds.PixelFrames()
	if err != nil {
		return nil, &FileError{Path: bscanPath, Err: err}
	}
	res.BScans = Stack(frames)
	res.Header = header.Merge(sloHeader)

	n, rows, cols := res.BScans.Shape()
	o.logger.Debug().
		Str("bscan", bscanPath).
		Int("frames", n).
		Int("rows", rows).
		Int("cols", cols).
		Str("scan_position", res.Header[KeyScanPosition].(string)).
		Msg("read B-scan volume")

	return res, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
