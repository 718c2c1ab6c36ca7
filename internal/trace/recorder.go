// Package trace writes an optional, write-only journal of the events and
// state transitions a Runner actually applies during a run: a diagnostic
// log for "what happened and when", never a mechanism for reloading or
// resuming a Tracker/Runner.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
)

// dirPerm matches the teacher's checkpoint directory permission.
const dirPerm = 0o750

// filePerm matches the teacher's checkpoint metadata file permission.
const filePerm = 0o600

// Record is one journal entry: a path or task transition a Runner applied.
type Record struct {
	Time  time.Time `json:"time"`
	Kind  string    `json:"kind"` // "path" or "task"
	Name  string    `json:"name"`
	State string    `json:"state"`
}

// Recorder appends Records to an LZ4-compressed JSONL file. A nil
// *Recorder is valid and every method on it is a no-op, so callers can
// carry one unconditionally and only allocate it when tracing is enabled.
type Recorder struct {
	file *os.File
	lz   *lz4.Writer
	enc  *json.Encoder
}

// NewRecorder creates directory if needed and opens a new journal file
// inside it named after the current time, compressed with LZ4 as the
// teacher's pkg/rbtree compresses its serialized trees.
func NewRecorder(directory string) (*Recorder, error) {
	if err := os.MkdirAll(directory, dirPerm); err != nil {
		return nil, fmt.Errorf("trace: create directory: %w", err)
	}

	path := filepath.Join(directory, fmt.Sprintf("run-%d.jsonl.lz4", time.Now().UnixNano()))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}

	lzWriter := lz4.NewWriter(file)

	return &Recorder{file: file, lz: lzWriter, enc: json.NewEncoder(lzWriter)}, nil
}

// Record appends one entry to the journal. Safe to call on a nil Recorder.
func (r *Recorder) Record(kind, name, state string) {
	if r == nil {
		return
	}

	_ = r.enc.Encode(Record{Time: time.Now().UTC(), Kind: kind, Name: name, State: state})
}

// Close flushes the LZ4 frame and closes the underlying file. Safe to call
// on a nil Recorder.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}

	if err := r.lz.Close(); err != nil {
		_ = r.file.Close()
		return fmt.Errorf("trace: flush: %w", err)
	}

	return r.file.Close()
}

// Open decompresses and returns a reader over a previously written journal
// file, yielding the raw JSONL stream a caller can decode with
// json.NewDecoder.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}

	return &decompressingReader{file: file, lz: lz4.NewReader(file)}, nil
}

type decompressingReader struct {
	file *os.File
	lz   *lz4.Reader
}

func (d *decompressingReader) Read(p []byte) (int, error) {
	return d.lz.Read(p)
}

func (d *decompressingReader) Close() error {
	return d.file.Close()
}
