package webdav

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/model"
)

func newChunked(t *testing.T, remote *fakeRemote, chunkSize int64, concurrency int) *ChunkedUploader {
	t.Helper()
	rq, ep, dirs := remote.parts(t)
	up, err := newChunkedUploader(rq, ep, dirs, chunkSize, concurrency)
	require.NoError(t, err)
	up.newSession = func() string { return "sess-1" }
	return up
}

func TestCheckChunkSize(t *testing.T) {
	assert.NoError(t, CheckChunkSize(DefaultChunkSize))
	assert.NoError(t, CheckChunkSize(MinChunkSize))
	assert.NoError(t, CheckChunkSize(MaxChunkSize))
	assert.Error(t, CheckChunkSize(MinChunkSize-1))
	assert.Error(t, CheckChunkSize(MaxChunkSize+1))
	assert.Error(t, CheckChunkSize(0))
}

func TestNewChunkedUploaderRejectsChunkSize(t *testing.T) {
	remote := newFakeRemote(t, nil)
	rq, ep, dirs := remote.parts(t)

	_, err := newChunkedUploader(rq, ep, dirs, MinChunkSize-1, 1)
	assert.Error(t, err)
	_, err = newChunkedUploader(rq, ep, dirs, MaxChunkSize+1, 1)
	assert.Error(t, err)

	up, err := newChunkedUploader(rq, ep, dirs, DefaultChunkSize, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, up.concurrency)
	assert.Equal(t, DefaultChunkSize*MaxChunks, up.MaxFileSize())
}

func TestChunkedUploadProtocol(t *testing.T) {
	remote := newFakeRemote(t, nil)
	up := newChunked(t, remote, DefaultChunkSize, 1)
	const size = 10_200_000
	local := sparseFile(t, "data.zip", size)

	require.NoError(t, up.Upload(context.Background(), local, "a/b/c/data.zip"))

	calls := remote.Calls()
	assert.Equal(t, []string{
		"MKCOL /files/alice/a",
		"MKCOL /files/alice/a/b",
		"MKCOL /files/alice/a/b/c",
		"MKCOL /uploads/alice/sess-1",
		"PUT /uploads/alice/sess-1/0001",
		"PUT /uploads/alice/sess-1/0002",
		"MOVE /uploads/alice/sess-1/.file",
	}, methodsAndPaths(calls))

	dest := remote.URL() + "/remote.php/dav/files/alice/a/b/c/data.zip"
	open, first, second, move := calls[3], calls[4], calls[5], calls[6]

	assert.Equal(t, dest, open.Header.Get(HeaderDestination))
	assert.Empty(t, open.Header.Get(HeaderTotalLength))

	assert.Equal(t, DefaultChunkSize, first.Size)
	assert.Equal(t, int64(size)-DefaultChunkSize, second.Size)
	for _, c := range []call{first, second, move} {
		assert.Equal(t, dest, c.Header.Get(HeaderDestination))
		assert.Equal(t, strconv.Itoa(size), c.Header.Get(HeaderTotalLength))
		assert.Equal(t, "Basic YWxpY2U6czNjcmV0", c.Header.Get("Authorization"))
	}
	assert.Zero(t, move.Size)
}

func TestChunkedUploadEmptyFile(t *testing.T) {
	remote := newFakeRemote(t, nil)
	up := newChunked(t, remote, DefaultChunkSize, 1)

	err := up.Upload(context.Background(), writeFile(t, "empty.zip", nil), "a/empty.zip")
	assert.ErrorIs(t, err, model.ErrInvalidFile)
	assert.Empty(t, remote.Calls())
}

func TestChunkedUploadRejectsFileAboveChunkLimit(t *testing.T) {
	remote := newFakeRemote(t, nil)
	up := newChunked(t, remote, MinChunkSize, 1)
	local := sparseFile(t, "huge.bin", MinChunkSize*MaxChunks+1)

	err := up.Upload(context.Background(), local, "a/huge.bin")
	if !errors.Is(err, model.ErrInvalidFile) {
		t.Fatalf("err = %v, want ErrInvalidFile", err)
	}
	if n := len(remote.Calls()); n != 0 {
		t.Errorf("calls = %d, want 0 for a file over %d chunks", n, MaxChunks)
	}
}

func TestChunkedUploadAbortsOnChunkFailure(t *testing.T) {
	remote := newFakeRemote(t, func(c call) (int, string) {
		if strings.HasSuffix(c.Path, "/0002") {
			return http.StatusNotFound, "session gone"
		}
		return http.StatusCreated, ""
	})
	up := newChunked(t, remote, MinChunkSize, 1)
	local := sparseFile(t, "big.bin", 3*MinChunkSize+10)

	err := up.Upload(context.Background(), local, "big.bin")
	require.ErrorIs(t, err, model.ErrUnexpectedResponse)

	var ue *model.UnexpectedResponseError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusNotFound, ue.StatusCode)

	assert.Equal(t, []string{
		"MKCOL /uploads/alice/sess-1",
		"PUT /uploads/alice/sess-1/0001",
		"PUT /uploads/alice/sess-1/0002",
	}, methodsAndPaths(remote.Calls()))
}

func TestChunkedUploadSessionFailure(t *testing.T) {
	remote := newFakeRemote(t, func(c call) (int, string) {
		if strings.HasPrefix(c.Path, "/uploads/") {
			return http.StatusForbidden, ""
		}
		return http.StatusCreated, ""
	})
	up := newChunked(t, remote, MinChunkSize, 1)

	err := up.Upload(context.Background(), sparseFile(t, "big.bin", MinChunkSize+1), "dir/big.bin")
	assert.ErrorIs(t, err, model.ErrUnexpectedResponse)
	assert.Equal(t, []string{
		"MKCOL /files/alice/dir",
		"MKCOL /uploads/alice/sess-1",
	}, methodsAndPaths(remote.Calls()))
}

func TestChunkedUploadAssembleFailure(t *testing.T) {
	remote := newFakeRemote(t, func(c call) (int, string) {
		if c.Method == MethodMove {
			return http.StatusBadRequest, "length mismatch"
		}
		return http.StatusCreated, ""
	})
	up := newChunked(t, remote, MinChunkSize, 1)

	err := up.Upload(context.Background(), sparseFile(t, "big.bin", MinChunkSize+1), "big.bin")
	require.ErrorIs(t, err, model.ErrUnexpectedResponse)
	assert.Contains(t, err.Error(), "assemble")
	assert.Len(t, remote.Calls(), 4)
}

func TestChunkedUploadConcurrent(t *testing.T) {
	remote := newFakeRemote(t, nil)
	up := newChunked(t, remote, MinChunkSize, 3)
	size := 4*MinChunkSize - 7
	local := sparseFile(t, "big.bin", size)

	require.NoError(t, up.Upload(context.Background(), local, "big.bin"))

	calls := remote.Calls()
	require.Len(t, calls, 6)
	assert.Equal(t, "MKCOL /uploads/alice/sess-1", methodsAndPaths(calls)[0])
	assert.Equal(t, "MOVE /uploads/alice/sess-1/.file", methodsAndPaths(calls)[5], "assembly must come after every chunk")

	var total int64
	seen := map[string]bool{}
	for _, c := range calls[1:5] {
		assert.Equal(t, http.MethodPut, c.Method)
		seen[c.Path] = true
		total += c.Size
	}
	assert.Equal(t, size, total)
	assert.Len(t, seen, 4)
}

func TestChunkedUploadConcurrentFailureSkipsAssembly(t *testing.T) {
	remote := newFakeRemote(t, func(c call) (int, string) {
		if strings.HasSuffix(c.Path, "/0002") {
			return http.StatusInternalServerError, ""
		}
		return http.StatusCreated, ""
	})
	up := newChunked(t, remote, MinChunkSize, 2)

	err := up.Upload(context.Background(), sparseFile(t, "big.bin", 4*MinChunkSize), "big.bin")
	require.ErrorIs(t, err, model.ErrUnexpectedResponse)
	for _, c := range remote.Calls() {
		assert.NotEqual(t, MethodMove, c.Method)
	}
}
