package product

import "github.com/tphakala/foodscan/internal/errors"

// Pipeline error taxonomy. Components wrap these in enhanced errors so
// callers branch with errors.Is.
var (
	// ErrNotFound means a lookup or OCR pass yielded no usable data.
	ErrNotFound = errors.NewStd("product not found")
	// ErrAborted means the scan was cancelled before completion. It is not a failure.
	ErrAborted = errors.NewStd("scan aborted")
	// ErrPersistenceFailure means the record store rejected the write.
	ErrPersistenceFailure = errors.NewStd("product could not be saved")
	// ErrProvider means a lookup adapter failed unexpectedly.
	ErrProvider = errors.NewStd("lookup provider error")
	// ErrScanInProgress is returned when a scan trigger arrives while another is in flight.
	ErrScanInProgress = errors.NewStd("scan already in progress")
	// ErrNoText means OCR recognised no text in the image.
	ErrNoText = errors.NewStd("no text detected in image")
)
