package anonymizer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oct-dicom/internal/identity"
)

func sampleHeader() MapHeader {
	return MapHeader{
		FieldID:        "abc",
		FieldPatientID: "PAT-001",
		FieldDOB:       "19700101",
		"SizeX":        512,
		"ScaleX":       float32(0.5),
		"Version":      "Spectralis",
		"ScanFocus":    "",
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func TestAnonymizeHeader(t *testing.T) {
	src := sampleHeader()

	record, err := AnonymizeHeader(src)
	require.NoError(t, err)

	h := record.Header
	assert.Equal(t, identity.Pseudonym("abc"), h[FieldID])
	assert.True(t, strings.HasPrefix(h[FieldID].(string), "5197575653"))
	assert.Equal(t, identity.Pseudonym("PAT-001"), h[FieldPatientID])
	assert.Equal(t, identity.Pseudonym("19700101"), h[FieldDOB])

	for _, field := range IdentityFields {
		value, ok := h[field].(string)
		require.True(t, ok, field)
		assert.True(t, isDigits(value), "%s is not a digit string", field)
		assert.NotEqual(t, src[field], value)
	}

	// Non-identity fields survive, normalised.
	assert.Equal(t, int64(512), h["SizeX"])
	assert.Equal(t, 0.5, h["ScaleX"])
	assert.Equal(t, "Spectralis", h["Version"])
	assert.Equal(t, "", h["ScanFocus"])
	assert.Len(t, h, len(src))

	// The source header is untouched.
	assert.Equal(t, sampleHeader(), src)
}

func TestAnonymizeHeaderDeterministic(t *testing.T) {
	first, err := AnonymizeHeader(sampleHeader())
	require.NoError(t, err)
	second, err := AnonymizeHeader(sampleHeader())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other := sampleHeader()
	other[FieldPatientID] = "PAT-002"
	third, err := AnonymizeHeader(other)
	require.NoError(t, err)
	assert.NotEqual(t, first.Header[FieldPatientID], third.Header[FieldPatientID])
	assert.Equal(t, first.Header[FieldID], third.Header[FieldID])
}

func TestAnonymizeHeaderNonStringIdentity(t *testing.T) {
	h := sampleHeader()
	h[FieldID] = 4711
	h[FieldDOB] = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

	record, err := AnonymizeHeader(h)
	require.NoError(t, err)
	assert.Equal(t, identity.Pseudonym("4711"), record.Header[FieldID])
	assert.Equal(t, identity.Pseudonym("1970-01-01"), record.Header[FieldDOB])
}

func TestAnonymizeHeaderNilAndFloatIdentity(t *testing.T) {
	h := sampleHeader()
	h[FieldID] = 1.0
	h[FieldDOB] = nil

	record, err := AnonymizeHeader(h)
	require.NoError(t, err)
	assert.Equal(t, identity.Pseudonym("1.0"), record.Header[FieldID])
	assert.Equal(t, identity.Pseudonym("None"), record.Header[FieldDOB])
}

func TestAnonymizeHeaderMissingField(t *testing.T) {
	for _, field := range IdentityFields {
		t.Run(field, func(t *testing.T) {
			h := sampleHeader()
			delete(h, field)

			record, err := AnonymizeHeader(h)
			assert.Nil(t, record)
			require.ErrorIs(t, err, ErrMissingIdentityField)

			var fieldErr *IdentityFieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, field, fieldErr.Field)
		})
	}
}

func TestSaveAnonymizedHeader(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "scan.json")

	path, err := SaveAnonymizedHeader(sampleHeader(), out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n  \"header\": {\n    \""), text)
	assert.True(t, strings.HasSuffix(text, "}\n"))

	var doc struct {
		Header map[string]any `json:"header"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, identity.Pseudonym("abc"), doc.Header[FieldID])
	assert.Equal(t, float64(512), doc.Header["SizeX"])

	// Only the document remains, no temporary files.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scan.json", entries[0].Name())
}

func TestSaveAnonymizedHeaderOverwrites(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scan.json")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	_, err := SaveAnonymizedHeader(sampleHeader(), out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestSaveAnonymizedHeaderMissingFieldWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scan.json")
	h := sampleHeader()
	delete(h, FieldDOB)

	_, err := SaveAnonymizedHeader(h, out)
	require.ErrorIs(t, err, ErrMissingIdentityField)
	assert.NoFileExists(t, out)
}

func TestSaveAnonymizedHeaderWriteErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "taken"), 0755))

	tests := []struct {
		name string
		path string
	}{
		{"missing directory", filepath.Join(dir, "nope", "scan.json")},
		{"target is a directory", filepath.Join(dir, "taken")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SaveAnonymizedHeader(sampleHeader(), tt.path)
			require.ErrorIs(t, err, ErrWrite)

			var writeErr *WriteError
			require.True(t, errors.As(err, &writeErr))
			assert.Equal(t, tt.path, writeErr.Path)
			assert.NotNil(t, writeErr.Unwrap())
		})
	}
}

func TestRecordMarshalKeepsMarkup(t *testing.T) {
	r := &Record{Header: map[string]any{"Version": "<Spectralis & co>"}}
	data, err := r.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "<Spectralis & co>")
}
