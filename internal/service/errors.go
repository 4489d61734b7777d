package service

import (
	"errors"
	"fmt"

	"talent-sourcing-service/internal/entity"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrResultsNotFound = errors.New("job results not found")
)

// ValidationError rejects a request before any job is created.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// InfrastructureError is a queue or store failure on the submission path.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *InfrastructureError) Unwrap() error { return e.Err }

// NotCompletedError is returned for result reads of a job that has not
// reached the completed status.
type NotCompletedError struct {
	Status entity.JobStatus
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("Job is not completed yet. Current status: %s", e.Status)
}
