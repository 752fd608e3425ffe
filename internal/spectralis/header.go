package spectralis

import (
	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "oct-dicom/internal/dicom"
)

// Header maps field names to scalar values (int, float64 or string).
// Unresolvable fields hold the empty string.
type Header map[string]any

// Header field names.
const (
	KeyVersion                 = "Version"
	KeySizeX                   = "SizeX"
	KeyNumBScans               = "NumBScans"
	KeySizeZ                   = "SizeZ"
	KeyScaleX                  = "ScaleX"
	KeyDistance                = "Distance"
	KeyScaleZ                  = "ScaleZ"
	KeyScanFocus               = "ScanFocus"
	KeyScanPosition            = "ScanPosition"
	KeyExamTime                = "ExamTime"
	KeyScanPattern             = "ScanPattern"
	KeyBScanHdrSize            = "BScanHdrSize"
	KeyID                      = "ID"
	KeyReferenceID             = "ReferenceID"
	KeyPID                     = "PID"
	KeyPatientID               = "PatientID"
	KeyPadding                 = "Padding"
	KeyDOB                     = "DOB"
	KeyVID                     = "VID"
	KeyVisitID                 = "VisitID"
	KeyVisitDate               = "VisitDate"
	KeyGridType                = "GridType"
	KeyGridOffset              = "GridOffset"
	KeyGridType1               = "GridType1"
	KeyGridOffset1             = "GridOffset1"
	KeyProgID                  = "ProgID"
	KeyPatientSex              = "PatientSex"
	KeyDeviceManufacturer      = "DeviceManufacturer"
	KeyEmmetropicMagnification = "EmmetropicMagnification"
	KeyIOP                     = "IOP"
	KeyHorizontalFieldofView   = "HorizontalFieldofView"
	KeyPupilDilated            = "PupilDilated"
	KeyAxialLength             = "AxialLength"
	KeyDepthSpatialResolution  = "DepthSpatialResolution"

	KeySizeXSlo     = "SizeXSlo"
	KeySizeYSlo     = "SizeYSlo"
	KeyScaleXSlo    = "ScaleXSlo"
	KeyScaleYSlo    = "ScaleYSlo"
	KeyFieldSizeSlo = "FieldSizeSlo"
)

// Laterality codes written to ScanPosition.
const (
	LeftEye  = "OS"
	RightEye = "OD"
)

// Tags outside the common patient/image modules.
var (
	tagSharedFunctionalGroups = tag.Tag{Group: 0x5200, Element: 0x9229}
	tagPixelMeasures          = tag.Tag{Group: 0x0028, Element: 0x9110}
	tagFrameAnatomy           = tag.Tag{Group: 0x0020, Element: 0x9071}
	tagFrameLaterality        = tag.Tag{Group: 0x0020, Element: 0x9072}

	tagEmmetropicMagnification = tag.Tag{Group: 0x0022, Element: 0x000A}
	tagIntraOcularPressure     = tag.Tag{Group: 0x0022, Element: 0x000B}
	tagHorizontalFieldOfView   = tag.Tag{Group: 0x0022, Element: 0x000C}
	tagPupilDilated            = tag.Tag{Group: 0x0022, Element: 0x000D}
	tagAxialLengthOfTheEye     = tag.Tag{Group: 0x0022, Element: 0x0030}
	tagDepthSpatialResolution  = tag.Tag{Group: 0x0022, Element: 0x0035}
)

// directFields are resolved by a top-level lookup, "" when absent.
var directFields = []struct {
	key string
	tag tag.Tag
}{
	{KeyVersion, tag.ManufacturerModelName},
	{KeySizeX, tag.Columns},
	{KeyNumBScans, tag.NumberOfFrames},
	{KeySizeZ, tag.Rows},
	{KeyExamTime, tag.StudyDate},
	{KeyID, tag.StudyID},
	{KeyReferenceID, tag.SeriesNumber},
	{KeyPatientID, tag.PatientID},
	{KeyDOB, tag.PatientBirthDate},
	{KeyPatientSex, tag.PatientSex},
	{KeyDeviceManufacturer, tag.Manufacturer},
	{KeyEmmetropicMagnification, tagEmmetropicMagnification},
	{KeyIOP, tagIntraOcularPressure},
	{KeyHorizontalFieldofView, tagHorizontalFieldOfView},
	{KeyPupilDilated, tagPupilDilated},
	{KeyAxialLength, tagAxialLengthOfTheEye},
	{KeyDepthSpatialResolution, tagDepthSpatialResolution},
}

// placeholderFields are never present in Spectralis DICOM exports.
var placeholderFields = []string{
	KeyScanFocus, KeyScanPattern, KeyBScanHdrSize, KeyPID, KeyPadding,
	KeyVID, KeyVisitID, KeyVisitDate, KeyGridType, KeyGridOffset,
	KeyGridType1, KeyGridOffset1, KeyProgID,
}

// SLOFields lists the keys contributed by the SLO image.
var SLOFields = []string{KeySizeXSlo, KeySizeYSlo, KeyScaleXSlo, KeyScaleYSlo, KeyFieldSizeSlo}

// Defaults used when the shared functional groups carry no pixel measures.
var (
	DefaultPixelSpacing = [2]float64{1, 1}
	DefaultDistance     = 1.0
)

// geometry is what the shared functional groups contribute to the header.
type geometry struct {
	spacing    [2]float64 // row, column
	distance   float64
	laterality string
}

func resolveGeometry(ds *dcm.Dataset) geometry {
	g := geometry{spacing: DefaultPixelSpacing, distance: DefaultDistance}

	shared, ok := ds.FirstItem(tagSharedFunctionalGroups)
	if !ok {
		return g
	}

	if measures, ok := shared.FirstItem(tagPixelMeasures); ok {
		if spacing, ok := measures.Floats(tag.PixelSpacing); ok && len(spacing) >= 2 {
			g.spacing = [2]float64{spacing[0], spacing[1]}
		}
		if thickness, ok := measures.Floats(tag.SliceThickness); ok {
			g.distance = thickness[0]
		}
	}

	if anatomy, ok := shared.FirstItem(tagFrameAnatomy); ok {
		g.laterality = anatomy.GetString(tagFrameLaterality)
	}

	return g
}

// ScanPosition maps a DICOM laterality code to the eye convention.
// Only "L" means the left eye; any other code, including a missing one,
// is reported as the right eye.
func ScanPosition(laterality string) string {
	if laterality == "L" {
		return LeftEye
	}
	return RightEye
}

// resolveBScanHeader assembles the volume header from a B-scan dataset.
func resolveBScanHeader(ds *dcm.Dataset) Header {
	g := resolveGeometry(ds)

	h := make(Header, len(directFields)+len(placeholderFields)+4)
	for _, f := range directFields {
		h[f.key] = ds.ValueOr(f.tag, "")
	}
	for _, key := range placeholderFields {
		h[key] = ""
	}

	h[KeyScaleX] = g.spacing[1]
	h[KeyScaleZ] = g.spacing[0]
	h[KeyDistance] = g.distance
	h[KeyScanPosition] = ScanPosition(g.laterality)

	return h
}

func emptySLOHeader() Header {
	h := make(Header, len(SLOFields))
	for _, key := range SLOFields {
		h[key] = ""
	}
	return h
}

// Merge returns a new header with other's fields overlaid on h.
// On a key collision the value from other wins.
func (h Header) Merge(other Header) Header {
	out := make(Header, len(h)+len(other))
	for k, v := range h {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of the header.
func (h Header) Clone() Header {
	return h.Merge(nil)
}
