package dicom_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcm "oct-dicom/internal/dicom"
	"oct-dicom/internal/dicom/dicomtest"
)

func volumeAt(t *testing.T, path string) {
	t.Helper()
	dicomtest.WriteVolume(t, path, dicomtest.Volume{Frames: 2, Rows: 4, Cols: 6})
}

func sloAt(t *testing.T, path string) {
	t.Helper()
	dicomtest.WriteSLO(t, path, dicomtest.SLO{
		Rows: 4, Cols: 6,
		PixelSpacing: []string{"0.0114", "0.0115"},
		FieldOfView:  []float64{30},
	})
}

func TestFindDicomFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "anonymized"), 0755))

	// Extensionless files are found by their magic bytes.
	volumeAt(t, filepath.Join(root, "00000011"))
	sloAt(t, filepath.Join(root, "sub", "slo.dcm"))
	volumeAt(t, filepath.Join(root, "anonymized", "x.dcm"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0644))

	files, err := dcm.FindDicomFiles(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "00000011"),
		filepath.Join(root, "sub", "slo.dcm"),
	}, files)

	files, err = dcm.FindDicomFiles(root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "00000011")}, files)
}

func TestClassifyFile(t *testing.T) {
	dir := t.TempDir()
	vol := filepath.Join(dir, "vol.dcm")
	slo := filepath.Join(dir, "slo.dcm")
	volumeAt(t, vol)
	sloAt(t, slo)

	kind, compressed := dcm.ClassifyFile(vol)
	assert.Equal(t, dcm.KindVolume, kind)
	assert.False(t, compressed)

	kind, _ = dcm.ClassifyFile(slo)
	assert.Equal(t, dcm.KindSLO, kind)

	kind, _ = dcm.ClassifyFile(filepath.Join(dir, "absent.dcm"))
	assert.Equal(t, dcm.KindVolume, kind)
}

func TestFindScanPairs(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"before", "after", "alone"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0755))
	}

	// SLO precedes the volume.
	sloAt(t, filepath.Join(root, "before", "00000010.dcm"))
	volumeAt(t, filepath.Join(root, "before", "00000011.dcm"))
	// SLO follows the volume.
	volumeAt(t, filepath.Join(root, "after", "00000001.dcm"))
	sloAt(t, filepath.Join(root, "after", "00000002.dcm"))
	// No SLO at all.
	volumeAt(t, filepath.Join(root, "alone", "00000001.dcm"))

	pairs, err := dcm.FindScanPairs(root, true)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	byName := map[string]dcm.ScanPair{}
	for _, p := range pairs {
		byName[filepath.ToSlash(p.Name)] = p
	}

	assert.Equal(t, filepath.Join(root, "before", "00000010.dcm"), byName["before/00000011"].SLO)
	assert.Equal(t, filepath.Join(root, "after", "00000002.dcm"), byName["after/00000001"].SLO)
	assert.Empty(t, byName["alone/00000001"].SLO)
	assert.Equal(t, filepath.Join(root, "alone", "00000001.dcm"), byName["alone/00000001"].BScan)
}

func TestFindScanPairsKeepsDottedNames(t *testing.T) {
	root := t.TempDir()

	// Exports named by SOP instance UID differ only after the last dot.
	volumeAt(t, filepath.Join(root, "1.2.276.0.75.2.1.11"))
	volumeAt(t, filepath.Join(root, "1.2.276.0.75.2.1.12"))

	pairs, err := dcm.FindScanPairs(root, true)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "1.2.276.0.75.2.1.11", pairs[0].Name)
	assert.Equal(t, "1.2.276.0.75.2.1.12", pairs[1].Name)
}

func TestFindScanPairsUniqueNames(t *testing.T) {
	root := t.TempDir()

	volumeAt(t, filepath.Join(root, "scan"))
	volumeAt(t, filepath.Join(root, "scan.dcm"))
	volumeAt(t, filepath.Join(root, "scan.DICOM"))

	pairs, err := dcm.FindScanPairs(root, true)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	names := map[string]string{}
	for _, p := range pairs {
		names[filepath.Base(p.BScan)] = p.Name
	}
	assert.Equal(t, "scan", names["scan"])
	assert.Equal(t, "scan.dcm", names["scan.dcm"])
	assert.Equal(t, "scan.DICOM", names["scan.DICOM"])
}
