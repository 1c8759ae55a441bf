package util

import "io"

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (r *readSeekNopCloser) Close() error {
	return nil
}

// NewReadSeekNopCloser adapts a ReadSeeker to ReadSeekCloser with a no-op
// Close.
func NewReadSeekNopCloser(rs io.ReadSeeker) io.ReadSeekCloser {
	return &readSeekNopCloser{rs}
}
