package ingest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"casefile-hq/quaestor/pkg/ledger"
)

// Artifact is the connector boundary: a byte-producing source plus
// descriptive metadata. The pipeline does not care how the bytes were
// obtained.
type Artifact interface {
	// Name is the artifact's display name (e.g. file name, table name).
	Name() string

	// Open returns a reader over the artifact's bytes. Each call returns
	// a fresh reader positioned at the start.
	Open() (io.ReadCloser, error)

	// Metadata describes where the bytes came from.
	Metadata() ledger.SourceMetadata
}

// Sizer is an optional capability an artifact may advertise when its total
// size is known up front. Artifacts implementing Sizer get percentage
// progress reporting; others report bytes read only.
type Sizer interface {
	Size() int64
}

// Tagger is an optional capability an artifact may advertise to attach
// tags to its archived record.
type Tagger interface {
	Tags() []string
}

// FileArtifact is an artifact backed by a file on disk.
type FileArtifact struct {
	Path string
	Meta ledger.SourceMetadata

	// RecordTags are attached to the archived record.
	RecordTags []string
}

// NewFileArtifact creates a file-backed artifact. If the metadata source is
// empty it defaults to "filesystem".
func NewFileArtifact(path string, meta ledger.SourceMetadata) *FileArtifact {
	if meta.Source == "" {
		meta.Source = "filesystem"
	}
	return &FileArtifact{Path: path, Meta: meta}
}

// Name returns the file's base name.
func (a *FileArtifact) Name() string { return filepath.Base(a.Path) }

// Open opens the file for reading.
func (a *FileArtifact) Open() (io.ReadCloser, error) { return os.Open(a.Path) }

// Metadata returns the artifact's source metadata.
func (a *FileArtifact) Metadata() ledger.SourceMetadata { return a.Meta }

// Tags returns the tags to attach to the archived record.
func (a *FileArtifact) Tags() []string { return a.RecordTags }

// Size returns the file size, advertising the Sizer capability. A stat
// failure reports an unknown size; the read path surfaces the real error.
func (a *FileArtifact) Size() int64 {
	info, err := os.Stat(a.Path)
	if err != nil {
		return -1
	}
	return info.Size()
}

// BytesArtifact is an artifact backed by an in-memory byte slice. Connector
// adapters that already hold raw rows use this to hand them to the pipeline.
type BytesArtifact struct {
	ArtifactName string
	Data         []byte
	Meta         ledger.SourceMetadata
}

// NewBytesArtifact creates an in-memory artifact.
func NewBytesArtifact(name string, data []byte, meta ledger.SourceMetadata) *BytesArtifact {
	return &BytesArtifact{ArtifactName: name, Data: data, Meta: meta}
}

// Name returns the artifact name.
func (a *BytesArtifact) Name() string { return a.ArtifactName }

// Open returns a reader over the data.
func (a *BytesArtifact) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.Data)), nil
}

// Metadata returns the artifact's source metadata.
func (a *BytesArtifact) Metadata() ledger.SourceMetadata { return a.Meta }

// Size returns the data length.
func (a *BytesArtifact) Size() int64 { return int64(len(a.Data)) }
