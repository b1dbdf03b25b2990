package model

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// MediaFile is a user-supplied binary input with its declared name and MIME type.
// The content is read lazily through the opener.
type MediaFile struct {
	Name     string
	MIMEType string
	open     func() (io.ReadCloser, error)
}

// NewMediaFile wraps an opener. Each call to Open must yield the full content.
func NewMediaFile(name, mimeType string, open func() (io.ReadCloser, error)) *MediaFile {
	return &MediaFile{Name: name, MIMEType: mimeType, open: open}
}

// MediaFileFromBytes wraps an in-memory payload.
func MediaFileFromBytes(name, mimeType string, data []byte) *MediaFile {
	return NewMediaFile(name, mimeType, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// MediaFileFromPath wraps a file on disk.
func MediaFileFromPath(path, mimeType string) *MediaFile {
	return NewMediaFile(path, mimeType, func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// Open returns a reader over the file content.
func (f *MediaFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, os.ErrInvalid
	}
	return f.open()
}

// IsImage reports whether the declared MIME type is an image type.
func (f *MediaFile) IsImage() bool {
	return f != nil && strings.HasPrefix(f.MIMEType, "image/")
}

// EncodedPart is the transport form of a MediaFile: base64 content plus MIME type.
type EncodedPart struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}
