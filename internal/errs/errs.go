// Package errs defines the error taxonomy shared by the connectors and
// the pipeline. Every type here is terminal for the step that raised it;
// the orchestrator decides which ones abort the whole run.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConfigMissingError reports a required credential or setting that is
// absent. It is raised before any network call is made.
type ConfigMissingError struct {
	Field string
	Hint  string
}

func (e *ConfigMissingError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s not configured. %s", e.Field, e.Hint)
	}
	return fmt.Sprintf("%s not configured", e.Field)
}

// NotFoundError reports a source id that resolved to no thread, as
// opposed to a transport failure.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// HTTPError reports a non-2xx response from any upstream REST or GraphQL
// endpoint, carrying the status and the response body.
type HTTPError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Endpoint, e.Status, e.Body)
}

// GraphQLError reports a 200 OK response that nevertheless carried an
// errors array.
type GraphQLError struct {
	Endpoint string
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("%s GraphQL error: %s", e.Endpoint, strings.Join(e.Messages, ", "))
}

// TimeoutError reports a subprocess or poll loop that exceeded its
// ceiling. Distinct from a backend-reported failure.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Limit)
}

// EmptyResponseError reports an AI backend that returned nothing usable.
type EmptyResponseError struct {
	Backend string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s returned an empty response", e.Backend)
}

// LookupError reports a project key that could not be resolved to a team
// id, listing the keys that do exist.
type LookupError struct {
	Key       string
	Available []string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("team with key %q not found. Available teams: %s", e.Key, strings.Join(e.Available, ", "))
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var to *TimeoutError
	return errors.As(err, &to)
}
