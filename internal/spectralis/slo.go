package spectralis

import (
	"errors"

	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "oct-dicom/internal/dicom"
)

// readSLO resolves the SLO header and image. Unlike the B-scan, every SLO
// attribute is required.
func readSLO(path string, o *options) (Header, Image, error) {
	ds, err := o.open(path)
	if err != nil {
		return nil, nil, err
	}

	missing := func(field string) error {
		return &FieldError{Field: field, Path: path}
	}

	cols, ok := ds.Int(tag.Columns)
	if !ok {
		return nil, nil, missing("Columns")
	}
	rows, ok := ds.Int(tag.Rows)
	if !ok {
		return nil, nil, missing("Rows")
	}
	spacing, ok := ds.Floats(tag.PixelSpacing)
	if !ok || len(spacing) < 2 {
		return nil, nil, missing("PixelSpacing")
	}
	fieldSize, ok := ds.Value(tagHorizontalFieldOfView)
	if !ok {
		return nil, nil, missing("HorizontalFieldOfView")
	}

	frames, err := ds.PixelFrames()
	if errors.Is(err, dcm.ErrNoPixelData) {
		return nil, nil, missing("PixelData")
	}
	if err != nil {
		return nil, nil, &FileError{Path: path, Err: err}
	}

	header := Header{
		KeySizeXSlo:     cols,
		KeySizeYSlo:     rows,
		KeyScaleXSlo:    spacing[0],
		KeyScaleYSlo:    spacing[1],
		KeyFieldSizeSlo: fieldSize,
	}
	return header, Image(frames[0]), nil
}
