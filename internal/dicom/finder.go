package dicom

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DicomExtensions are common DICOM file extensions
var DicomExtensions = []string{".dcm", ".dicom"}

// ExcludedNames are filenames to skip
var ExcludedNames = map[string]bool{
	"DICOMDIR":       true,
	".progress.json": true,
	".DS_Store":      true,
	"Thumbs.db":      true,
	"desktop.ini":    true,
	"README":         true,
	"README.md":      true,
	"LICENSE":        true,
}

// ExcludedExtensions are file extensions to skip
var ExcludedExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".xml":  true,
	".txt":  true,
	".md":   true,
	".log":  true,
	".csv":  true,
	".zip":  true,
	".gz":   true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".pdf":  true,
}

// ExcludedDirs are directory names to skip entirely
var ExcludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
	"anonymized":   true,
}

// FindDicomFiles finds all DICOM files in the given path.
func FindDicomFiles(inputPath string, recursive bool) ([]string, error) {
	var files []string

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() {
			if path != inputPath && ExcludedDirs[info.Name()] {
				return filepath.SkipDir
			}
			if !recursive && path != inputPath {
				return filepath.SkipDir
			}
			return nil
		}

		if ExcludedNames[info.Name()] {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ExcludedExtensions[ext] {
			return nil
		}

		isDicom := false
		for _, de := range DicomExtensions {
			if ext == de {
				isDicom = true
				break
			}
		}

		// Spectralis exports are often extensionless (00000010, 00000011, ...)
		if !isDicom && hasDicomMagicBytes(path) {
			isDicom = true
		}

		if isDicom {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.Walk(inputPath, walkFn); err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// hasDicomMagicBytes checks if a file has the DICOM magic bytes ("DICM" at offset 128)
func hasDicomMagicBytes(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	header := make([]byte, 132)
	if _, err := io.ReadFull(file, header); err != nil {
		return false
	}

	return string(header[128:132]) == "DICM"
}

// FileKind classifies a DICOM file for pairing.
type FileKind int

const (
	KindVolume FileKind = iota // multi-frame OCT B-scan volume
	KindSLO                    // single-frame fundus/SLO reference image
)

// ScanPair is a B-scan volume and the SLO image captured with it.
// SLO is empty when no reference image was found next to the volume.
type ScanPair struct {
	Name       string // unique volume path relative to the search root, without a DICOM extension
	BScan      string
	SLO        string
	Compressed bool // volume uses a JPEG-LS transfer syntax
}

// ClassifyFile reads a file's metadata and decides whether it is a volume or an SLO image.
// Files that cannot be read are reported as volumes so the failure surfaces when the
// volume is processed.
func ClassifyFile(path string) (FileKind, bool) {
	ds, err := ReadDicomMetadataOnly(path)
	if err != nil {
		return KindVolume, false
	}
	return classify(ds), ds.IsJPEGLS()
}

func classify(ds *Dataset) FileKind {
	switch ds.GetModality() {
	case "OPT":
		return KindVolume
	case "OP":
		return KindSLO
	}
	if ds.NumberOfFrames() > 1 {
		return KindVolume
	}
	return KindSLO
}

// FindScanPairs finds DICOM files under root and pairs every volume with an SLO
// image from the same directory: the nearest preceding one in name order, or
// failing that the nearest following one.
func FindScanPairs(root string, recursive bool) ([]ScanPair, error) {
	files, err := FindDicomFiles(root, recursive)
	if err != nil {
		return nil, err
	}

	type entry struct {
		path       string
		kind       FileKind
		compressed bool
	}

	byDir := make(map[string][]entry)
	var dirs []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if _, ok := byDir[dir]; !ok {
			dirs = append(dirs, dir)
		}
		kind, compressed := ClassifyFile(f)
		byDir[dir] = append(byDir[dir], entry{path: f, kind: kind, compressed: compressed})
	}
	sort.Strings(dirs)

	var pairs []ScanPair
	for _, dir := range dirs {
		entries := byDir[dir]
		for i, e := range entries {
			if e.kind != KindVolume {
				continue
			}
			pair := ScanPair{
				Name:       pairName(root, e.path),
				BScan:      e.path,
				Compressed: e.compressed,
			}
			for j := i - 1; j >= 0 && pair.SLO == ""; j-- {
				if entries[j].kind == KindSLO {
					pair.SLO = entries[j].path
				}
			}
			for j := i + 1; j < len(entries) && pair.SLO == ""; j++ {
				if entries[j].kind == KindSLO {
					pair.SLO = entries[j].path
				}
			}
			pairs = append(pairs, pair)
		}
	}

	uniqueNames(root, pairs)
	return pairs, nil
}

// pairName is the volume path relative to root with a known DICOM extension
// removed. Other suffixes are kept: UID-named exports such as
// "1.2.276.0.75.2.1.11" differ only after the last dot.
func pairName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	ext := filepath.Ext(rel)
	for _, de := range DicomExtensions {
		if strings.EqualFold(ext, de) {
			return strings.TrimSuffix(rel, ext)
		}
	}
	return rel
}

// uniqueNames keeps pair names distinct so no two exports share an output
// path. A clashing name ("scan" from both "scan" and "scan.dcm") falls back
// to the full relative path, then to a numbered suffix.
func uniqueNames(root string, pairs []ScanPair) {
	taken := make(map[string]bool, len(pairs))
	for i := range pairs {
		name := pairs[i].Name
		if taken[name] {
			if rel, err := filepath.Rel(root, pairs[i].BScan); err == nil && !taken[rel] {
				name = rel
			}
		}
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d", pairs[i].Name, n)
		}
		taken[name] = true
		pairs[i].Name = name
	}
}
