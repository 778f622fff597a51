package models

// DocumentStatus represents the outcome of a store lookup
type DocumentStatus string

const (
	DocumentStatusUnset    DocumentStatus = ""          // Zero value = unset/unknown
	DocumentStatusFound    DocumentStatus = "found"     // Record present in the store
	DocumentStatusNotFound DocumentStatus = "not_found" // No record under the id
	DocumentStatusDBError  DocumentStatus = "db_error"  // Database error occurred
)

// String implements fmt.Stringer for logging
func (s DocumentStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// ResultStatus represents the outcome of structuring one source in a batch
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailure ResultStatus = "failure"
	ResultStatusSkipped ResultStatus = "skipped" // Unchanged content already stored
)

// String implements fmt.Stringer for logging
func (s ResultStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known value
func (s ResultStatus) IsValid() bool {
	switch s {
	case ResultStatusSuccess, ResultStatusFailure, ResultStatusSkipped:
		return true
	}
	return false
}
