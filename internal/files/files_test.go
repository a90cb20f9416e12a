// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package files

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngPayload = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	pdfPayload = []byte("%PDF-1.4\n%test document\n")
)

// makeFileHeader builds a real multipart.FileHeader by writing and
// re-parsing a multipart form, the same way the HTTP layer produces it.
func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	headers := form.File["files"]
	require.Len(t, headers, 1)
	return headers[0]
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir(), 1<<20)
	require.NoError(t, err)
	return s
}

func TestSaveAcceptedTypes(t *testing.T) {
	s := newTestStorage(t)

	tests := []struct {
		name    string
		content []byte
	}{
		{"photo.png", pngPayload},
		{"scan.pdf", pdfPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := s.Save(makeFileHeader(t, tt.name, tt.content))
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(id, "-"+tt.name), "id %q keeps original name", id)

			data, err := os.ReadFile(filepath.Join(s.Dir(), id))
			require.NoError(t, err)
			assert.Equal(t, tt.content, data)
		})
	}
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save(makeFileHeader(t, "notes.txt", []byte("plain text, not an image")))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	s, err := New(t.TempDir(), 16)
	require.NoError(t, err)

	_, err = s.Save(makeFileHeader(t, "big.png", pngPayload))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSaveSanitizesFilename(t *testing.T) {
	s := newTestStorage(t)

	id, err := s.Save(makeFileHeader(t, "../../etc/pass wd.png", pngPayload))
	require.NoError(t, err)
	assert.NotContains(t, id, "/")
	assert.NotContains(t, id, "..")
	assert.True(t, strings.HasSuffix(id, "-pass_wd.png"), "got %q", id)
}

func TestSaveAllCleansUpOnFailure(t *testing.T) {
	s := newTestStorage(t)

	headers := []*multipart.FileHeader{
		makeFileHeader(t, "ok.png", pngPayload),
		makeFileHeader(t, "bad.txt", []byte("rejected payload")),
	}

	_, err := s.SaveAll(headers)
	require.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected batch must leave no files behind")
}

func TestOpenRejectsPathEscapes(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Open("../store.go")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
