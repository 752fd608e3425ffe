package anonymizer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"oct-dicom/internal/dicom/dicomtest"
	"oct-dicom/internal/identity"
)

// writeStudy lays out:
//
//	a/00000010.dcm  SLO
//	a/00000011.dcm  volume
//	b/00000011.dcm  volume without SLO
//	c/broken.dcm    unreadable
func writeStudy(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"a", "b", "c"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0755))
	}

	patient := []*dicom.Element{
		dicomtest.Element(t, tag.StudyID, []string{"4711"}),
		dicomtest.Element(t, tag.PatientID, []string{"PAT-001"}),
		dicomtest.Element(t, tag.PatientBirthDate, []string{"19700101"}),
	}

	dicomtest.WriteSLO(t, filepath.Join(root, "a", "00000010.dcm"), dicomtest.SLO{
		Rows: 4, Cols: 6,
		PixelSpacing: []string{"0.0114", "0.0115"},
		FieldOfView:  []float64{30},
	})
	dicomtest.WriteVolume(t, filepath.Join(root, "a", "00000011.dcm"), dicomtest.Volume{
		Frames: 2, Rows: 4, Cols: 6,
		Extra: patient,
	})
	dicomtest.WriteVolume(t, filepath.Join(root, "b", "00000011.dcm"), dicomtest.Volume{
		Frames: 2, Rows: 4, Cols: 6,
		Extra: patient,
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "c", "broken.dcm"), []byte("not a dicom file"), 0644))

	return root
}

func batchConfig(input, output string) Config {
	return Config{
		InputFolder:  input,
		OutputFolder: output,
		Recursive:    true,
		Workers:      2,
		Logger:       zerolog.Nop(),
		OutputWriter: func(string) {},
	}
}

func readExport(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Header map[string]any `json:"header"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc.Header
}

func TestProcessFolder(t *testing.T) {
	root := writeStudy(t)
	out := filepath.Join(t.TempDir(), "export")

	var mu sync.Mutex
	statuses := map[string]string{}
	cb := func(current, total int, name, status string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		assert.LessOrEqual(t, current, total)
		statuses[filepath.ToSlash(name)] = status
	}

	stats, err := ProcessFolder(context.Background(), batchConfig(root, out), cb)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Pairs: 3, Success: 2, Failed: 1, SloMissing: 1}, stats)
	assert.Equal(t, map[string]string{
		"a/00000011": StatusSuccess,
		"b/00000011": StatusSuccess,
		"c/broken":   StatusFailed,
	}, statuses)

	withSLO := readExport(t, filepath.Join(out, "a", "00000011.json"))
	assert.Equal(t, identity.Pseudonym("4711"), withSLO[FieldID])
	assert.Equal(t, identity.Pseudonym("PAT-001"), withSLO[FieldPatientID])
	assert.Equal(t, identity.Pseudonym("19700101"), withSLO[FieldDOB])
	assert.Equal(t, float64(6), withSLO["SizeXSlo"])
	assert.NotContains(t, withSLO, "PatientID")
	assert.NotContains(t, withSLO, "DOB")

	withoutSLO := readExport(t, filepath.Join(out, "b", "00000011.json"))
	assert.Equal(t, "", withoutSLO["SizeXSlo"])

	logData, err := os.ReadFile(filepath.Join(out, "errors.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "c/broken")
	assert.FileExists(t, filepath.Join(out, ".progress.json"))
}

func TestProcessFolderResumes(t *testing.T) {
	root := writeStudy(t)
	out := filepath.Join(t.TempDir(), "export")
	cfg := batchConfig(root, out)

	_, err := ProcessFolder(context.Background(), cfg, nil)
	require.NoError(t, err)

	stats, err := ProcessFolder(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Success)

	cfg.RetryFailed = true
	stats, err = ProcessFolder(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
}

func TestProcessFolderDefaultOutput(t *testing.T) {
	root := writeStudy(t)
	cfg := batchConfig(root, "")

	stats, err := ProcessFolder(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Success)
	assert.FileExists(t, filepath.Join(root, DefaultOutputDir, "a", "00000011.json"))

	// The export folder is never scanned as input.
	stats, err = ProcessFolder(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pairs)
}

func TestProcessFolderDryRun(t *testing.T) {
	root := writeStudy(t)
	out := filepath.Join(t.TempDir(), "export")

	var lines strings.Builder
	cfg := batchConfig(root, out)
	cfg.DryRun = true
	cfg.OutputWriter = func(s string) { lines.WriteString(s) }

	stats, err := ProcessFolder(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Pairs: 3, Skipped: 3, SloMissing: 2}, stats)
	assert.NoDirExists(t, out)
	assert.Contains(t, lines.String(), "[DRY RUN]")
	assert.Contains(t, lines.String(), "00000010.dcm")
}

func TestProcessFolderCancelled(t *testing.T) {
	root := writeStudy(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := batchConfig(root, filepath.Join(t.TempDir(), "export"))
	_, err := ProcessFolder(ctx, cfg, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessFolderEmpty(t *testing.T) {
	cfg := batchConfig(t.TempDir(), "")

	stats, err := ProcessFolder(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, stats)
}

func TestProcessFolderUIDNames(t *testing.T) {
	root := t.TempDir()
	for _, uid := range []string{"1.2.276.0.75.2.1.11", "1.2.276.0.75.2.1.12"} {
		dicomtest.WriteVolume(t, filepath.Join(root, uid), dicomtest.Volume{
			Frames: 2, Rows: 4, Cols: 6,
			Extra: []*dicom.Element{dicomtest.Element(t, tag.PatientID, []string{uid})},
		})
	}
	out := filepath.Join(t.TempDir(), "export")

	stats, err := ProcessFolder(context.Background(), batchConfig(root, out), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Success)

	for _, uid := range []string{"1.2.276.0.75.2.1.11", "1.2.276.0.75.2.1.12"} {
		header := readExport(t, filepath.Join(out, uid+".json"))
		assert.Equal(t, identity.Pseudonym(uid), header[FieldPatientID])
	}
}
