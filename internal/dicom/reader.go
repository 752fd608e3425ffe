package dicom

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Dataset wraps a DICOM dataset for easier access
type Dataset struct {
	Data     dicom.Dataset
	FilePath string
}

// ReadDicom reads a DICOM file, pixel data included.
func ReadDicom(path string) (*Dataset, error) {
	return parseFile(path)
}

// ReadDicomMetadataOnly reads only the metadata (no pixel data).
func ReadDicomMetadataOnly(path string) (*Dataset, error) {
	return parseFile(path, dicom.SkipPixelData())
}

func parseFile(path string, opts ...dicom.ParseOption) (ds *Dataset, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat file: %w", err)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			ds = nil
			err = fmt.Errorf("could not parse DICOM: %v", r)
		}
	}()

	data, err := dicom.Parse(file, info.Size(), nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not parse DICOM: %w", err)
	}

	return &Dataset{
		Data:     data,
		FilePath: path,
	}, nil
}

// Lookup returns the top-level element for a tag, reporting whether it is present.
func (d *Dataset) Lookup(t tag.Tag) (*dicom.Element, bool) {
	elem, err := d.Data.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return nil, false
	}
	return elem, true
}

// Value returns the first value of a tag converted to a Go scalar.
// Integer string VRs (IS) become int, decimal strings (DS) become float64.
func (d *Dataset) Value(t tag.Tag) (any, bool) {
	elem, ok := d.Lookup(t)
	if !ok {
		return nil, false
	}
	return scalarValue(elem)
}

// ValueOr returns the scalar value for a tag, or def when the tag is absent.
func (d *Dataset) ValueOr(t tag.Tag, def any) any {
	if v, ok := d.Value(t); ok {
		return v
	}
	return def
}

// GetString returns a string value for a tag, or empty string if not found.
func (d *Dataset) GetString(t tag.Tag) string {
	v, ok := d.Value(t)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int returns the first value of a tag as an int.
func (d *Dataset) Int(t tag.Tag) (int, bool) {
	v, ok := d.Value(t)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Floats returns every value of a numeric tag as float64, including
// decimal strings.
func (d *Dataset) Floats(t tag.Tag) ([]float64, bool) {
	elem, ok := d.Lookup(t)
	if !ok {
		return nil, false
	}
	return floatValues(elem)
}

// Items returns the items of a sequence tag, each wrapped as a Dataset.
func (d *Dataset) Items(t tag.Tag) []*Dataset {
	elem, ok := d.Lookup(t)
	if !ok {
		return nil
	}
	seq, ok := elem.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}

	items := make([]*Dataset, 0, len(seq))
	for _, item := range seq {
		elems, ok := item.GetValue().([]*dicom.Element)
		if !ok {
			continue
		}
		items = append(items, &Dataset{
			Data:     dicom.Dataset{Elements: elems},
			FilePath: d.FilePath,
		})
	}
	return items
}

// FirstItem returns the first item of a sequence tag.
func (d *Dataset) FirstItem(t tag.Tag) (*Dataset, bool) {
	items := d.Items(t)
	if len(items) == 0 {
		return nil, false
	}
	return items[0], true
}

// GetTransferSyntax returns the transfer syntax UID.
func (d *Dataset) GetTransferSyntax() string {
	return d.GetString(tag.TransferSyntaxUID)
}

// GetModality returns the DICOM modality (e.g., "OPT" for OCT volumes, "OP" for fundus/SLO).
func (d *Dataset) GetModality() string {
	return d.GetString(tag.Modality)
}

// NumberOfFrames returns the frame count, defaulting to 1 when the tag is absent.
func (d *Dataset) NumberOfFrames() int {
	if n, ok := d.Int(tag.NumberOfFrames); ok && n > 0 {
		return n
	}
	return 1
}
