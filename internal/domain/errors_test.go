package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{URL: "http://example.com/x.zip", Status: 404, Err: errors.New("not found")}
	assert.Contains(t, err.Error(), "http://example.com/x.zip")
	assert.Contains(t, err.Error(), "404")

	noStatus := &FetchError{URL: "http://example.com", Err: errors.New("timeout")}
	assert.NotContains(t, noStatus.Error(), "status")
}

func TestErrorTaxonomy_Unwrap(t *testing.T) {
	inner := errors.New("disk full")

	var storageErr *StorageError
	wrapped := error(&StorageError{Op: "write", Path: "/tmp/x", Err: inner})
	assert.True(t, errors.As(wrapped, &storageErr))
	assert.True(t, errors.Is(wrapped, inner))

	var renderErr *RenderError
	wrapped = &RenderError{Stage: "compose", Err: inner}
	assert.True(t, errors.As(wrapped, &renderErr))
	assert.Equal(t, "compose", renderErr.Stage)
}
