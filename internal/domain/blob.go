package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxBlobSize caps a single upload.
const MaxBlobSize = 5 << 20

type BlobKind string

const (
	BlobKindImage BlobKind = "image"
	BlobKindFile  BlobKind = "file"
)

var (
	ErrBlobRejected        = errors.New("upload rejected")
	ErrUnsupportedFileType = fmt.Errorf("%w: unsupported file type", ErrBlobRejected)
	ErrFileTooLarge        = fmt.Errorf("%w: file too large", ErrBlobRejected)
	ErrEmptyFilename       = fmt.Errorf("%w: no selected file", ErrBlobRejected)
	ErrBlobNotFound        = errors.New("blob not found")
)

var (
	imageExtensions    = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}
	documentExtensions = map[string]bool{".pdf": true, ".txt": true}
)

// Blob describes an accepted upload. Name is the stored, collision-free name;
// Filename is the sanitized name the client sent.
type Blob struct {
	RoomID   string   `json:"roomId"`
	Name     string   `json:"name"`
	Filename string   `json:"filename"`
	URL      string   `json:"url"`
	Kind     BlobKind `json:"type"`
	Size     int64    `json:"size"`
}

type BlobStore interface {
	Put(ctx context.Context, roomID, filename string, r io.Reader) (*Blob, error)
	Open(ctx context.Context, roomID, name string) (io.ReadSeekCloser, error)
	// DeleteAll removes the room namespace. Individual failures are tolerated.
	DeleteAll(ctx context.Context, roomID string) error
}

// ClassifyBlob returns the kind of an allowed filename, or ErrUnsupportedFileType.
func ClassifyBlob(filename string) (BlobKind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExtensions[ext]:
		return BlobKindImage, nil
	case documentExtensions[ext]:
		return BlobKindFile, nil
	default:
		return "", ErrUnsupportedFileType
	}
}
