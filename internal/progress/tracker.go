package progress

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FileStatus represents the processing status of a scan
type FileStatus string

const (
	StatusSuccess FileStatus = "success"
	StatusError   FileStatus = "error"
)

// FileEntry represents a processed scan entry
type FileEntry struct {
	Status    FileStatus `json:"status"`
	Hash      string     `json:"hash"`
	Output    string     `json:"output,omitempty"`
	Warning   int        `json:"warning,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// TrackerData is the JSON structure for persistence
type TrackerData struct {
	Files   map[string]*FileEntry `json:"files"`
	Updated string                `json:"updated"`
	Summary struct {
		Success int `json:"success"`
		Error   int `json:"error"`
		Total   int `json:"total"`
	} `json:"summary"`
}

// Tracker tracks processing progress for resumable runs.
// Entries are keyed by an arbitrary name (the B-scan path) and fingerprinted
// over the input files, so a changed or newly added input is processed again.
type Tracker struct {
	mu           sync.Mutex
	progressFile string
	processed    map[string]*FileEntry
	logger       zerolog.Logger
}

// NewTracker creates a new progress tracker, loading previous state from progressFile.
func NewTracker(progressFile string, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		progressFile: progressFile,
		processed:    make(map[string]*FileEntry),
		logger:       logger,
	}

	if progressFile != "" {
		t.load()
	}

	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.progressFile)
	if err != nil {
		return // File doesn't exist, start fresh
	}

	var trackerData TrackerData
	if err := json.Unmarshal(data, &trackerData); err != nil {
		t.logger.Warn().Err(err).Str("file", t.progressFile).Msg("could not load progress file")
		return
	}

	t.processed = trackerData.Files
	if t.processed == nil {
		t.processed = make(map[string]*FileEntry)
	}

	t.logger.Info().
		Int("succeeded", t.countStatus(StatusSuccess)).
		Int("failed", t.countStatus(StatusError)).
		Msg("loaded progress")
}

func (t *Tracker) save() {
	if t.progressFile == "" {
		return
	}

	trackerData := TrackerData{
		Files:   t.processed,
		Updated: time.Now().Format(time.RFC3339),
	}
	trackerData.Summary.Success = t.countStatus(StatusSuccess)
	trackerData.Summary.Error = t.countStatus(StatusError)
	trackerData.Summary.Total = len(t.processed)

	data, err := json.MarshalIndent(trackerData, "", "  ")
	if err != nil {
		t.logger.Warn().Err(err).Msg("could not marshal progress data")
		return
	}

	if err := os.WriteFile(t.progressFile, data, 0644); err != nil {
		t.logger.Warn().Err(err).Str("file", t.progressFile).Msg("could not save progress")
	}
}

func (t *Tracker) countStatus(status FileStatus) int {
	count := 0
	for _, entry := range t.processed {
		if entry.Status == status {
			count++
		}
	}
	return count
}

// Fingerprint creates a quick hash over the size and modification time of
// each file. Missing files contribute a marker, so a file appearing later
// changes the fingerprint.
func Fingerprint(files ...string) string {
	parts := make([]string, len(files))
	for i, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			parts[i] = "-"
			continue
		}
		parts[i] = fmt.Sprintf("%d_%d", info.Size(), info.ModTime().UnixNano())
	}
	hash := md5.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", hash[:4])
}

// IsProcessed checks if a key has been successfully processed with unchanged inputs.
func (t *Tracker) IsProcessed(key string, files ...string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.processed[key]
	if !ok || entry.Status != StatusSuccess {
		return false
	}

	return entry.Hash == Fingerprint(files...)
}

// MarkSuccess marks a key as successfully processed.
func (t *Tracker) MarkSuccess(key, outputPath string, warning int, files ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed[key] = &FileEntry{
		Status:    StatusSuccess,
		Hash:      Fingerprint(files...),
		Output:    outputPath,
		Warning:   warning,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	t.save()
}

// MarkError marks a key as failed.
func (t *Tracker) MarkError(key, errorMsg string, files ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed[key] = &FileEntry{
		Status:    StatusError,
		Hash:      Fingerprint(files...),
		Error:     errorMsg,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	t.save()
}

// Entry returns a copy of the entry for key.
func (t *Tracker) Entry(key string) (FileEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.processed[key]
	if !ok {
		return FileEntry{}, false
	}
	return *entry, true
}

// ClearFailed removes all failed entries for retry.
func (t *Tracker) ClearFailed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for key, entry := range t.processed {
		if entry.Status == StatusError {
			delete(t.processed, key)
			count++
		}
	}

	if count > 0 {
		t.save()
		t.logger.Info().Int("count", count).Msg("cleared failed entries for retry")
	}

	return count
}

// GetStats returns success and error counts.
func (t *Tracker) GetStats() (success, errors int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countStatus(StatusSuccess), t.countStatus(StatusError)
}
