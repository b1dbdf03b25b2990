// Package media converts user-selected files into the base64 payloads the
// generation API expects, and back.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/truonghoc/studio/internal/model"
)

// ErrUnreadable is returned when a file cannot be read.
var ErrUnreadable = errors.New("file unreadable")

// ErrInvalidDataURI is returned by ParseDataURI for malformed input.
var ErrInvalidDataURI = errors.New("invalid data URI")

const genericMIME = "application/octet-stream"

// Encode reads f and returns its base64 transport form. Read failures are
// returned wrapped in ErrUnreadable; Encode never yields empty data for a
// file it could not read.
func Encode(ctx context.Context, f *model.MediaFile) (model.EncodedPart, error) {
	if f == nil {
		return model.EncodedPart{}, fmt.Errorf("encode: %w: no file", ErrUnreadable)
	}
	if err := ctx.Err(); err != nil {
		return model.EncodedPart{}, err
	}

	rc, err := f.Open()
	if err != nil {
		return model.EncodedPart{}, fmt.Errorf("encode %s: %w: %v", f.Name, ErrUnreadable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(ctxReader{ctx: ctx, r: rc})
	if err != nil {
		if ctx.Err() != nil {
			return model.EncodedPart{}, ctx.Err()
		}
		return model.EncodedPart{}, fmt.Errorf("encode %s: %w: %v", f.Name, ErrUnreadable, err)
	}

	return model.EncodedPart{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: resolveMIME(f.MIMEType, data),
	}, nil
}

// Decode returns the raw bytes of an encoded part.
func Decode(p model.EncodedPart) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode part: %w", err)
	}
	return b, nil
}

// DataURI renders p as data:<mime>;base64,<data>.
func DataURI(p model.EncodedPart) string {
	return "data:" + p.MIMEType + ";base64," + p.Data
}

// ParseDataURI splits a base64 data URI back into an encoded part.
func ParseDataURI(uri string) (model.EncodedPart, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return model.EncodedPart{}, ErrInvalidDataURI
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return model.EncodedPart{}, ErrInvalidDataURI
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return model.EncodedPart{}, ErrInvalidDataURI
	}
	return model.EncodedPart{Data: data, MIMEType: mimeType}, nil
}

// resolveMIME keeps the declared type unless it is missing or generic.
func resolveMIME(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != genericMIME {
		return declared
	}
	if len(data) == 0 {
		return genericMIME
	}
	detected := mimetype.Detect(data).String()
	// Drop parameters such as "; charset=utf-8".
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
