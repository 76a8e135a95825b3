// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

// Package avatar validates uploaded profile pictures and stores them in
// object storage.
package avatar

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxSize is the largest accepted upload, 5 MiB.
const MaxSize = 5 << 20

// Error codes.
const (
	CodeTooLarge        = "AVATAR_TOO_LARGE"
	CodeUnsupportedType = "AVATAR_UNSUPPORTED_TYPE"
	CodeEmpty           = "AVATAR_EMPTY"
)

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Store writes objects and returns their public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) (string, error)
}

// Uploader checks uploads and hands them to a Store.
type Uploader struct {
	store   Store
	maxSize int64
}

// NewUploader creates an Uploader over store.
func NewUploader(store Store) *Uploader {
	return &Uploader{store: store, maxSize: MaxSize}
}

// Upload reads body, sniffs its image type and stores it under a fresh key
// for userID. The declared content type of the request is not trusted.
func (u *Uploader) Upload(ctx context.Context, userID int64, body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, u.maxSize+1))
	if err != nil {
		return "", oops.Code("AVATAR_READ_FAILED").With("operation", "read upload").Wrap(err)
	}
	if len(data) == 0 {
		return "", oops.Code(CodeEmpty).Errorf("file is empty")
	}
	if int64(len(data)) > u.maxSize {
		return "", oops.Code(CodeTooLarge).
			With("max_bytes", u.maxSize).
			Errorf("file exceeds %d bytes", u.maxSize)
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", oops.Code(CodeUnsupportedType).
			With("content_type", contentType).
			Errorf("unsupported image type %s", contentType)
	}

	key := ObjectKey(userID, ext)
	url, err := u.store.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", oops.With("operation", "store avatar").With("key", key).Wrap(err)
	}
	return url, nil
}

// ObjectKey returns avatars/<userID>/<ulid>.<ext>.
func ObjectKey(userID int64, ext string) string {
	return "avatars/" + strconv.FormatInt(userID, 10) + "/" + ulid.Make().String() + "." + ext
}
