package extract

import "fmt"

// ExtractionError indicates the PDF itself could not be parsed. The pipeline
// treats it as fatal for the run, unlike per-image failures which are soft.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed: %s", e.Op)
	}
	return fmt.Sprintf("extraction failed: %s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionErr(op string, err error) *ExtractionError {
	return &ExtractionError{Op: op, Err: err}
}
