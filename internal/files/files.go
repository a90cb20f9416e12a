// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package files validates and stores article attachments.
//
// Stored identifiers are "<unix-ms>-<original name>" and are opaque to
// the rest of the system: they flow through article snapshots and event
// payloads unchanged.
package files

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/palinaria/fullstack-app/internal/logging"
)

// Accepted attachment content types, sniffed from the payload rather
// than trusted from the request.
var allowedTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"application/pdf": {},
}

// Errors surfaced to the API layer as validation failures.
var (
	ErrUnsupportedType = errors.New("unsupported attachment type, allowed: JPEG, PNG, PDF")
	ErrTooLarge        = errors.New("attachment exceeds the maximum allowed size")
)

// Storage saves uploaded attachments under a single directory.
type Storage struct {
	dir     string
	maxSize int64
}

// New creates the uploads directory if needed and returns a Storage.
func New(dir string, maxSize int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create uploads dir %s: %w", dir, err)
	}
	return &Storage{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the uploads directory.
func (s *Storage) Dir() string {
	return s.dir
}

// SaveAll stores every uploaded file and returns the identifiers in
// upload order. On the first failure the already-stored files of this
// batch are removed so a rejected request leaves nothing behind.
func (s *Storage) SaveAll(headers []*multipart.FileHeader) ([]string, error) {
	ids := make([]string, 0, len(headers))
	for _, fh := range headers {
		id, err := s.Save(fh)
		if err != nil {
			s.removeAll(ids)
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Save validates and stores a single uploaded file, returning its
// stored identifier.
func (s *Storage) Save(fh *multipart.FileHeader) (string, error) {
	if s.maxSize > 0 && fh.Size > s.maxSize {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, fh.Filename, fh.Size)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer func() { _ = src.Close() }()

	if err := checkContentType(src); err != nil {
		return "", err
	}

	id := strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + sanitizeName(fh.Filename)
	dst, err := os.Create(filepath.Join(s.dir, id))
	if err != nil {
		return "", fmt.Errorf("create attachment %s: %w", id, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write attachment %s: %w", id, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close attachment %s: %w", id, err)
	}

	logging.Debug().Str("attachment", id).Int64("size", fh.Size).Msg("attachment stored")
	return id, nil
}

// Open returns a reader for a stored attachment.
func (s *Storage) Open(id string) (*os.File, error) {
	// Identifiers are flat names; reject anything that escapes the dir.
	if sanitizeName(id) != id {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.dir, id))
}

func (s *Storage) removeAll(ids []string) {
	for _, id := range ids {
		if err := os.Remove(filepath.Join(s.dir, id)); err != nil {
			logging.Warn().Err(err).Str("attachment", id).Msg("failed to remove attachment")
		}
	}
}

// checkContentType sniffs the payload and rewinds the reader.
func checkContentType(src multipart.File) error {
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read upload: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}

	detected := http.DetectContentType(head[:n])
	// DetectContentType may append parameters like "; charset=utf-8".
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	if _, ok := allowedTypes[detected]; !ok {
		return fmt.Errorf("%w: got %s", ErrUnsupportedType, detected)
	}
	return nil
}

// sanitizeName strips any path components and characters that are not
// safe in a flat filename.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		out = "upload"
	}
	return out
}
