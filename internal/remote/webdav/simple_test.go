package webdav

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/model"
)

func newSimpleUploader(t *testing.T, remote *fakeRemote) *SimpleUploader {
	rq, ep, dirs := remote.parts(t)
	return &SimpleUploader{rq: rq, ep: ep, dirs: dirs}
}

func TestSimpleUpload(t *testing.T) {
	remote := newFakeRemote(t, nil)
	up := newSimpleUploader(t, remote)
	local := writeFile(t, "img.png", []byte("PNG payload"))

	require.NoError(t, up.Upload(context.Background(), local, "models/7/img.png"))

	calls := remote.Calls()
	assert.Equal(t, []string{
		"MKCOL /files/alice/models",
		"MKCOL /files/alice/models/7",
		"PUT /files/alice/models/7/img.png",
	}, methodsAndPaths(calls))

	put := calls[2]
	assert.Equal(t, "PNG payload", string(put.Body))
	assert.Equal(t, int64(11), put.Size)
	assert.Equal(t, "Basic YWxpY2U6czNjcmV0", put.Header.Get("Authorization"))
}

func TestSimpleUploadRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name  string
		local func(t *testing.T) string
	}{
		{name: "empty file", local: func(t *testing.T) string { return writeFile(t, "empty.bin", nil) }},
		{name: "missing file", local: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.bin") }},
		{name: "over the ceiling", local: func(t *testing.T) string { return sparseFile(t, "big.bin", MaxSimpleUploadSize+1) }},
		{name: "directory", local: func(t *testing.T) string { return t.TempDir() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote(t, nil)
			up := newSimpleUploader(t, remote)

			err := up.Upload(context.Background(), tt.local(t), "a/b.bin")
			assert.ErrorIs(t, err, model.ErrInvalidFile)
			assert.Empty(t, remote.Calls(), "no request may be sent for invalid input")
		})
	}
}

func TestSimpleUploadAtCeiling(t *testing.T) {
	remote := newFakeRemote(t, nil)
	up := newSimpleUploader(t, remote)

	require.NoError(t, up.Upload(context.Background(), sparseFile(t, "edge.bin", MaxSimpleUploadSize), "edge.bin"))
	calls := remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, MaxSimpleUploadSize, calls[0].Size)
}

func TestSimpleUploadEmptyTarget(t *testing.T) {
	remote := newFakeRemote(t, nil)
	up := newSimpleUploader(t, remote)

	err := up.Upload(context.Background(), writeFile(t, "a.txt", []byte("x")), "/")
	assert.ErrorIs(t, err, model.ErrInvalidPath)
	assert.Empty(t, remote.Calls())
}

func TestSimpleUploadRemoteFailure(t *testing.T) {
	remote := newFakeRemote(t, func(c call) (int, string) {
		if c.Method == http.MethodPut {
			return http.StatusInsufficientStorage, "quota exceeded"
		}
		return http.StatusCreated, ""
	})
	up := newSimpleUploader(t, remote)

	err := up.Upload(context.Background(), writeFile(t, "a.txt", []byte("x")), "dir/a.txt")
	require.ErrorIs(t, err, model.ErrUnexpectedResponse)

	var ue *model.UnexpectedResponseError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusInsufficientStorage, ue.StatusCode)
	assert.Equal(t, "quota exceeded", ue.Body)
	assert.Equal(t, http.MethodPut, ue.Method)
}

func TestSimpleUploadDirectoryFailureStopsUpload(t *testing.T) {
	remote := newFakeRemote(t, func(call) (int, string) { return http.StatusBadGateway, "" })
	up := newSimpleUploader(t, remote)

	err := up.Upload(context.Background(), writeFile(t, "a.txt", []byte("x")), "dir/a.txt")
	assert.ErrorIs(t, err, model.ErrUnexpectedResponse)
	assert.Equal(t, []string{"MKCOL /files/alice/dir"}, methodsAndPaths(remote.Calls()))
}
