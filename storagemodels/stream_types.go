package storagemodels

import (
	"time"
)

// StreamResult represents a single item in a stream with metadata
type StreamResult[T any] struct {
	Item  T          // The unmarshaled item
	Raw   Document   // Raw stored attributes
	Error error      // Item-specific error, if any
	Meta  StreamMeta // Metadata about this item
}

// StreamMeta contains metadata about a streamed item
type StreamMeta struct {
	Index      int64     // Item index in stream (0-based)
	PageNumber int       // Page number (1-based)
	Timestamp  time.Time // When item was retrieved
}

// StreamOptions configures streaming behavior
type StreamOptions struct {
	BufferSize        int                  // Channel buffer size (default: 100)
	PageSize          int32                // Items per page (default: 100)
	ContinuationToken string               // Resume point (default: start)
	ProgressHandler   func(StreamProgress) // Optional progress callback
	ErrorHandler      func(error) bool     // Return true to continue, false to stop

	// MaxConsecutiveErrors stops the stream after this many page failures in a
	// row, even when ErrorHandler asks to continue (default: 5)
	MaxConsecutiveErrors int
}

// StreamProgress tracks streaming progress
type StreamProgress struct {
	ItemsProcessed    int64     // Total items processed
	PagesProcessed    int       // Total pages processed
	ContinuationToken string    // Token of the next page, empty at the end
	Errors            []error   // Accumulated non-fatal errors
	StartTime         time.Time // When streaming started
	CurrentRate       float64   // Items per second
}

// StreamOption is a functional option for configuring streaming
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns default streaming options
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize:           100,
		PageSize:             100,
		MaxConsecutiveErrors: 5,
	}
}

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) {
		opts.BufferSize = size
	}
}

// WithPageSize sets the page size
func WithPageSize(size int32) StreamOption {
	return func(opts *StreamOptions) {
		opts.PageSize = size
	}
}

// WithStartToken resumes the stream from a continuation token
func WithStartToken(token string) StreamOption {
	return func(opts *StreamOptions) {
		opts.ContinuationToken = token
	}
}

// WithProgressHandler sets a progress callback
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(opts *StreamOptions) {
		opts.ProgressHandler = handler
	}
}

// WithErrorHandler sets an error handler that can decide whether to continue
func WithErrorHandler(handler func(error) bool) StreamOption {
	return func(opts *StreamOptions) {
		opts.ErrorHandler = handler
	}
}

// WithMaxConsecutiveErrors caps how many page failures in a row the error
// handler may skip
func WithMaxConsecutiveErrors(n int) StreamOption {
	return func(opts *StreamOptions) {
		opts.MaxConsecutiveErrors = n
	}
}
