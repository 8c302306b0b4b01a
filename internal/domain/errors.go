package domain

import "fmt"

// FetchError reports a failed portal request: a transport error, a non-2xx
// status, or a metadata document that could not be interpreted.
type FetchError struct {
	URL    string
	Status int // 0 when the request never produced a response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError reports a cache directory or file operation failure.
type StorageError struct {
	Op   string // "mkdir", "create", "write", "close"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RenderError reports a failure in one of the delegated geospatial steps.
type RenderError struct {
	Stage string // "reproject" or "compose"
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
