package dicom

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Transfer syntaxes of Spectralis exports.
const (
	JPEGLSLossless         = "1.2.840.10008.1.2.4.80"
	JPEGLSNearLossy        = "1.2.840.10008.1.2.4.81"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

// ErrDcmtkMissing is returned when dcmdjpls cannot be located.
var ErrDcmtkMissing = errors.New("dcmtk (dcmdjpls) not found")

const dcmdjpls = "dcmdjpls"

// dcmtkDirs are searched after PATH, for installs that GUI launches and
// cron jobs do not see.
var dcmtkDirs = map[string][]string{
	"darwin":  {"/opt/homebrew/bin", "/usr/local/bin"},
	"linux":   {"/usr/bin", "/usr/local/bin"},
	"windows": {`C:\Program Files\dcmtk\bin`, `C:\dcmtk\bin`},
}

// IsJPEGLSSyntax reports whether uid names a JPEG-LS transfer syntax.
func IsJPEGLSSyntax(uid string) bool {
	switch strings.TrimRight(strings.TrimSpace(uid), "\x00") {
	case JPEGLSLossless, JPEGLSNearLossy:
		return true
	}
	return false
}

// IsJPEGLS reports whether the dataset is JPEG-LS encoded.
func (d *Dataset) IsJPEGLS() bool {
	return IsJPEGLSSyntax(d.GetTransferSyntax())
}

// FindDcmtk returns the path of the dcmdjpls binary.
func FindDcmtk() (string, error) {
	if path, err := exec.LookPath(dcmdjpls); err == nil {
		return path, nil
	}
	name := dcmdjpls
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	for _, dir := range dcmtkDirs[runtime.GOOS] {
		path := dir + string(os.PathSeparator) + name
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrDcmtkMissing
}

// CheckDcmtkInstalled reports whether dcmdjpls is available.
func CheckDcmtkInstalled() bool {
	_, err := FindDcmtk()
	return err == nil
}

// DecompressJPEGLS writes an uncompressed copy of a JPEG-LS file to a
// temporary file and returns its path. The caller removes it.
func DecompressJPEGLS(path string) (string, error) {
	bin, err := FindDcmtk()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "octexport-*.dcm")
	if err != nil {
		return "", fmt.Errorf("could not create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	out, err := exec.Command(bin, path, tmpPath).CombinedOutput()
	if err != nil {
		os.Remove(tmpPath)
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return "", fmt.Errorf("%s %s: %w: %s", dcmdjpls, path, err, msg)
		}
		return "", fmt.Errorf("%s %s: %w", dcmdjpls, path, err)
	}
	return tmpPath, nil
}
