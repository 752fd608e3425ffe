package dicom_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcm "oct-dicom/internal/dicom"
	"oct-dicom/internal/dicom/dicomtest"
)

func TestIsJPEGLSSyntax(t *testing.T) {
	tests := []struct {
		uid  string
		want bool
	}{
		{dcm.JPEGLSLossless, true},
		{dcm.JPEGLSNearLossy, true},
		{dcm.JPEGLSLossless + "\x00", true},
		{" " + dcm.JPEGLSNearLossy + " ", true},
		{dcm.ExplicitVRLittleEndian, false},
		{"1.2.840.10008.1.2.4.50", false},
		{"1.2.840.10008.1.2.4.801", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			assert.Equal(t, tt.want, dcm.IsJPEGLSSyntax(tt.uid))
		})
	}
}

func TestJPEGLSVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "00000011.dcm")
	dicomtest.WriteVolume(t, path, dicomtest.Volume{
		Frames: 2, Rows: 4, Cols: 6,
		TransferSyntax: dcm.JPEGLSLossless,
	})

	ds, err := dcm.ReadDicom(path)
	require.NoError(t, err)
	assert.True(t, ds.IsJPEGLS())

	kind, compressed := dcm.ClassifyFile(path)
	assert.Equal(t, dcm.KindVolume, kind)
	assert.True(t, compressed)

	pairs, err := dcm.FindScanPairs(filepath.Dir(path), false)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].Compressed)
}

func TestDecompressJPEGLSWithoutDcmtk(t *testing.T) {
	if dcm.CheckDcmtkInstalled() {
		t.Skip("dcmtk is installed")
	}

	_, err := dcm.FindDcmtk()
	assert.ErrorIs(t, err, dcm.ErrDcmtkMissing)

	_, err = dcm.DecompressJPEGLS(filepath.Join(t.TempDir(), "00000011.dcm"))
	assert.ErrorIs(t, err, dcm.ErrDcmtkMissing)
}
