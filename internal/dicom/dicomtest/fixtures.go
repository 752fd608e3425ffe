// Package dicomtest writes small Spectralis-like DICOM files for tests.
package dicomtest

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "oct-dicom/internal/dicom"
)

// SOP classes for ophthalmic tomography and ophthalmic photography.
const (
	OPTStorageClass = "1.2.840.10008.5.1.4.1.1.77.1.5.4"
	OPStorageClass  = "1.2.840.10008.5.1.4.1.1.77.1.5.1"
)

// Volume describes a multi-frame B-scan file.
type Volume struct {
	Frames, Rows, Cols int

	// TransferSyntax defaults to explicit VR little endian. The pixel data is
	// always written native.
	TransferSyntax string

	// SharedGroups toggles the SharedFunctionalGroupsSequence.
	SharedGroups bool
	// PixelSpacing and SliceThickness are written into the PixelMeasuresSequence
	// when non-empty; the sequence is omitted when both are empty.
	PixelSpacing   []string
	SliceThickness string
	// Laterality is written into the FrameAnatomySequence when non-empty.
	Laterality string

	// Extra top-level elements, e.g. patient and ophthalmic tags.
	Extra []*dicom.Element
}

// SLO describes a single-frame SLO image file.
type SLO struct {
	Rows, Cols   int
	PixelSpacing []string
	FieldOfView  []float64
	// Omit removes the listed tags after the dataset is built.
	Omit []tag.Tag
}

// Element builds an element or fails the test.
func Element(t testing.TB, tg tag.Tag, data any) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, data)
	require.NoError(t, err, "build element %v", tg)
	return elem
}

// PixelValue is the deterministic sample stored at a frame/row/column.
func PixelValue(f, y, x int) int {
	return (f*31 + y*7 + x) % 256
}

// WriteVolume writes a B-scan volume to path.
func WriteVolume(t testing.TB, path string, v Volume) {
	t.Helper()

	elems := metaElements(t, OPTStorageClass, "OPT", v.TransferSyntax)
	elems = append(elems, imageElements(t, v.Frames, v.Rows, v.Cols)...)
	elems = append(elems, Element(t, tag.NumberOfFrames, []string{strconv.Itoa(v.Frames)}))

	if v.SharedGroups {
		var item []*dicom.Element
		var measures []*dicom.Element
		if len(v.PixelSpacing) > 0 {
			measures = append(measures, Element(t, tag.PixelSpacing, v.PixelSpacing))
		}
		if v.SliceThickness != "" {
			measures = append(measures, Element(t, tag.SliceThickness, []string{v.SliceThickness}))
		}
		if len(measures) > 0 {
			item = append(item, Element(t, tag.Tag{Group: 0x0028, Element: 0x9110}, [][]*dicom.Element{measures}))
		}
		if v.Laterality != "" {
			anatomy := []*dicom.Element{
				Element(t, tag.Tag{Group: 0x0020, Element: 0x9072}, []string{v.Laterality}),
			}
			item = append(item, Element(t, tag.Tag{Group: 0x0020, Element: 0x9071}, [][]*dicom.Element{anatomy}))
		}
		elems = append(elems, Element(t, tag.Tag{Group: 0x5200, Element: 0x9229}, [][]*dicom.Element{item}))
	}

	elems = append(elems, v.Extra...)
	save(t, path, elems)
}

// WriteSLO writes an SLO image to path.
func WriteSLO(t testing.TB, path string, s SLO) {
	t.Helper()

	elems := metaElements(t, OPStorageClass, "OP", "")
	elems = append(elems, imageElements(t, 1, s.Rows, s.Cols)...)
	if len(s.PixelSpacing) > 0 {
		elems = append(elems, Element(t, tag.PixelSpacing, s.PixelSpacing))
	}
	if len(s.FieldOfView) > 0 {
		elems = append(elems, Element(t, tag.Tag{Group: 0x0022, Element: 0x000C}, s.FieldOfView))
	}

	kept := elems[:0]
	for _, e := range elems {
		if !containsTag(s.Omit, e.Tag) {
			kept = append(kept, e)
		}
	}
	save(t, path, kept)
}

func metaElements(t testing.TB, sopClass, modality, syntax string) []*dicom.Element {
	if syntax == "" {
		syntax = dcm.ExplicitVRLittleEndian
	}
	return []*dicom.Element{
		Element(t, tag.FileMetaInformationVersion, []byte{0x00, 0x01}),
		Element(t, tag.MediaStorageSOPClassUID, []string{sopClass}),
		Element(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.826.0.1.3680043.2.1125.1"}),
		Element(t, tag.TransferSyntaxUID, []string{syntax}),
		Element(t, tag.SOPClassUID, []string{sopClass}),
		Element(t, tag.Modality, []string{modality}),
	}
}

func imageElements(t testing.TB, frames, rows, cols int) []*dicom.Element {
	info := dicom.PixelDataInfo{}
	for f := 0; f < frames; f++ {
		data := make([][]int, rows*cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				data[y*cols+x] = []int{PixelValue(f, y, x)}
			}
		}
		info.Frames = append(info.Frames, &frame.Frame{
			NativeData: frame.NativeFrame{
				Data:          data,
				Rows:          rows,
				Cols:          cols,
				BitsPerSample: 8,
			},
		})
	}

	return []*dicom.Element{
		Element(t, tag.SamplesPerPixel, []int{1}),
		Element(t, tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		Element(t, tag.Rows, []int{rows}),
		Element(t, tag.Columns, []int{cols}),
		Element(t, tag.BitsAllocated, []int{8}),
		Element(t, tag.BitsStored, []int{8}),
		Element(t, tag.HighBit, []int{7}),
		Element(t, tag.PixelRepresentation, []int{0}),
		Element(t, tag.PixelData, info),
	}
}

func save(t testing.TB, path string, elems []*dicom.Element) {
	t.Helper()
	require.NoError(t, dcm.NewDataset(elems...).Save(path))
}

func containsTag(tags []tag.Tag, t tag.Tag) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}
