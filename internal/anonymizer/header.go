package anonymizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"oct-dicom/internal/identity"
)

// Identity fields replaced by their pseudonyms.
const (
	FieldID        = "id"
	FieldPatientID = "patient_id"
	FieldDOB       = "dob"
)

// IdentityFields lists the fields that are hashed, in hashing order.
var IdentityFields = []string{FieldID, FieldPatientID, FieldDOB}

var (
	// ErrMissingIdentityField is returned when a header lacks id, patient_id or dob.
	ErrMissingIdentityField = errors.New("identity field missing")
	// ErrWrite is returned when the anonymized header cannot be written.
	ErrWrite = errors.New("anonymized header could not be written")
)

// IdentityFieldError names the identity field a header is missing.
type IdentityFieldError struct {
	Field string
}

func (e *IdentityFieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingIdentityField, e.Field)
}

func (e *IdentityFieldError) Is(target error) bool { return target == ErrMissingIdentityField }

// WriteError reports a failed write of an anonymized header.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrWrite, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// Volume is anything carrying a header mapping.
type Volume interface {
	Header() map[string]any
}

// MapHeader adapts a plain map to Volume.
type MapHeader map[string]any

// Header returns the map itself.
func (h MapHeader) Header() map[string]any { return h }

// Record is the anonymized export document.
type Record struct {
	Header map[string]any `json:"header"`
}

// Option configures header export.
type Option func(*exportOptions)

type exportOptions struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for export diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *exportOptions) { o.logger = l }
}

func newExportOptions(opts []Option) *exportOptions {
	o := &exportOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AnonymizeHeader returns a normalised copy of the volume header with id,
// patient_id and dob replaced by their pseudonyms. The source header is not
// modified.
func AnonymizeHeader(vol Volume, opts ...Option) (*Record, error) {
	o := newExportOptions(opts)
	src := vol.Header()

	for _, field := range IdentityFields {
		if _, ok := src[field]; !ok {
			return nil, &IdentityFieldError{Field: field}
		}
	}

	header := NormalizeHeader(src)
	for _, field := range IdentityFields {
		value := stringForm(header[field])
		if isPlaceholder(field, value) {
			o.logger.Warn().Str("field", field).Msg("identity field holds a placeholder value")
		}
		header[field] = identity.Pseudonym(value)
	}

	return &Record{Header: header}, nil
}

func isPlaceholder(field, value string) bool {
	if field == FieldDOB {
		return identity.IsPlaceholderDOB(value)
	}
	return identity.IsPlaceholderID(value)
}

// Marshal renders the record as indented JSON with a trailing newline.
func (r *Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveAnonymizedHeader anonymizes the volume header and writes it as JSON to
// outputPath, returning the path. The parent directory must exist. Nothing is
// written when an identity field is missing.
func SaveAnonymizedHeader(vol Volume, outputPath string, opts ...Option) (string, error) {
	o := newExportOptions(opts)

	record, err := AnonymizeHeader(vol, opts...)
	if err != nil {
		return "", err
	}

	data, err := record.Marshal()
	if err != nil {
		return "", &WriteError{Path: outputPath, Err: err}
	}
	if err := writeFileAtomic(outputPath, data); err != nil {
		return "", &WriteError{Path: outputPath, Err: err}
	}

	o.logger.Info().Str("path", outputPath).Msg("anonymized header stored")
	return outputPath, nil
}

// writeFileAtomic writes through a temporary file in the target directory so
// a failed write never leaves a truncated document behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".header-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
