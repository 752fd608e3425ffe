package dicom

import (
	"errors"
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

var (
	// ErrNoPixelData is returned when a dataset carries no PixelData element.
	ErrNoPixelData = errors.New("no pixel data found")
	// ErrEncapsulatedPixelData is returned for compressed frames, which are not decoded here.
	ErrEncapsulatedPixelData = errors.New("pixel data is encapsulated (compressed)")
)

// HasPixelData reports whether the dataset carries a PixelData element.
func (d *Dataset) HasPixelData() bool {
	_, ok := d.Lookup(tag.PixelData)
	return ok
}

// PixelFrames returns the native pixel data as [frame][row][column].
// Only the first sample of each pixel is kept.
func (d *Dataset) PixelFrames() ([][][]int, error) {
	pixelElem, ok := d.Lookup(tag.PixelData)
	if !ok {
		return nil, ErrNoPixelData
	}

	info, ok := pixelElem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, fmt.Errorf("unsupported pixel data type: %T", pixelElem.Value.GetValue())
	}
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("%w: no frames in pixel data", ErrNoPixelData)
	}

	width, height, err := d.Dimensions()
	if err != nil {
		return nil, err
	}

	frames := make([][][]int, 0, len(info.Frames))
	for i, fr := range info.Frames {
		if fr == nil {
			return nil, fmt.Errorf("frame %d is nil", i)
		}
		if fr.Encapsulated {
			return nil, ErrEncapsulatedPixelData
		}
		pixels := fr.NativeData.Data
		if len(pixels) < width*height {
			return nil, fmt.Errorf("frame %d has %d pixels, want %d", i, len(pixels), width*height)
		}

		rows := make([][]int, height)
		for y := 0; y < height; y++ {
			row := make([]int, width)
			for x := 0; x < width; x++ {
				if samples := pixels[y*width+x]; len(samples) > 0 {
					row[x] = samples[0]
				}
			}
			rows[y] = row
		}
		frames = append(frames, rows)
	}

	return frames, nil
}

// Dimensions returns the width (Columns) and height (Rows) of the image.
func (d *Dataset) Dimensions() (width, height int, err error) {
	height, ok := d.Int(tag.Rows)
	if !ok {
		return 0, 0, fmt.Errorf("no Rows tag found")
	}
	width, ok = d.Int(tag.Columns)
	if !ok {
		return 0, 0, fmt.Errorf("no Columns tag found")
	}

	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("invalid image dimensions: %dx%d", width, height)
	}

	return width, height, nil
}
