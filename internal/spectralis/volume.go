package spectralis

// Identity keys used by anonymizable volume headers.
const (
	VolumeKeyID        = "id"
	VolumeKeyPatientID = "patient_id"
	VolumeKeyDOB       = "dob"
)

// identityAliases renames the reader's identity fields to volume header keys.
var identityAliases = map[string]string{
	KeyID:        VolumeKeyID,
	KeyPatientID: VolumeKeyPatientID,
	KeyDOB:       VolumeKeyDOB,
}

// Volume is a read scan in the shape header exporters expect: a header
// carrying the id, patient_id and dob identity fields plus the pixel arrays.
type Volume struct {
	header map[string]any
	BScans Stack
	SLO    Image
}

// Header returns the volume header.
func (v *Volume) Header() map[string]any {
	return v.header
}

// Volume returns the result as a Volume. The identity fields are moved (not
// copied) to their volume keys so no plaintext copy remains under the
// original names. The result's own header is left untouched.
func (r *Result) Volume() *Volume {
	h := make(map[string]any, len(r.Header))
	for k, v := range r.Header {
		if alias, ok := identityAliases[k]; ok {
			k = alias
		}
		h[k] = v
	}
	return &Volume{header: h, BScans: r.BScans, SLO: r.SLO}
}
