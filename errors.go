package pitchlens

import "errors"

var (
	// ErrFileNotFound is returned when the input document does not exist.
	ErrFileNotFound = errors.New("pitchlens: file not found")

	// ErrUnsupportedFormat is returned for unrecognized file extensions.
	ErrUnsupportedFormat = errors.New("pitchlens: unsupported file type")

	// ErrExtractionFailed is returned when document extraction fails and
	// the pipeline halts before any network activity.
	ErrExtractionFailed = errors.New("pitchlens: content extraction failed")

	// ErrMissingAPIKey is returned when no API credential resolves from
	// the explicit override or the environment.
	ErrMissingAPIKey = errors.New("pitchlens: API key is required")

	// ErrReportWrite is returned when the rendered report cannot be
	// written to disk. Distinct from an analysis failure, which still
	// produces a report.
	ErrReportWrite = errors.New("pitchlens: writing report failed")
)
