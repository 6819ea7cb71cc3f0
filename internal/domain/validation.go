package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrRepositoryMismatch  = errors.New("repository mismatch")
	ErrUnknownAgentSubtype = errors.New("unknown agent subtype")
	ErrInvalidReference    = errors.New("invalid reference")
)

// Request fields named by validation errors.
const (
	FieldMergeRequest       = "merge_request"
	FieldMergeRequestDetail = "merge_request_detail"
)

// ValidationError rejects a merge request before anything is modified.
type ValidationError struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message"`

	err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func newValidationError(field string, err error, message string) *ValidationError {
	return &ValidationError{Field: field, Kind: kindOf(err), Message: message, err: err}
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrRepositoryMismatch):
		return "repository_mismatch"
	case errors.Is(err, ErrUnknownAgentSubtype):
		return "unknown_agent_subtype"
	default:
		return "invalid_reference"
	}
}

// ParseReferences parses the target and victim uris of a request.
func ParseReferences(field, target string, victims []string) (Ref, []Ref, error) {
	t, err := ParseReference(target)
	if err != nil {
		return Ref{}, nil, newValidationError(field, ErrInvalidReference, err.Error())
	}
	if len(victims) == 0 {
		return Ref{}, nil, newValidationError(field, ErrInvalidReference, "at least one victim is required")
	}
	refs := make([]Ref, 0, len(victims))
	for _, v := range victims {
		r, err := ParseReference(v)
		if err != nil {
			return Ref{}, nil, newValidationError(field, ErrInvalidReference, err.Error())
		}
		if r.URI == t.URI {
			return Ref{}, nil, newValidationError(field, ErrInvalidReference, "a record cannot be merged into itself")
		}
		refs = append(refs, r)
	}
	return t, refs, nil
}

// EnsureType checks that target and victims are all of type typ.
func EnsureType(target Ref, victims []Ref, typ RecordType) error {
	for _, r := range append([]Ref{target}, victims...) {
		if r.Type != typ {
			return newValidationError(FieldMergeRequest, ErrTypeMismatch,
				fmt.Sprintf("This merge request can only merge %s records", typ))
		}
	}
	return nil
}

// CheckRepository checks that target and victims all live in repository
// repoID.
func CheckRepository(target Ref, victims []Ref, repoID int64) error {
	repoURI := RepositoryURI(repoID)
	for _, r := range append([]Ref{target}, victims...) {
		if r.Repository != repoURI {
			return newValidationError(FieldMergeRequest, ErrRepositoryMismatch,
				"All records to merge must be in the repository specified")
		}
	}
	return nil
}

// EnsureAgents checks that target and victims are all agent records. Mixed
// agent subtypes are allowed.
func EnsureAgents(field string, target Ref, victims []Ref) error {
	for _, r := range append([]Ref{target}, victims...) {
		if !r.Type.IsAgent() {
			return newValidationError(field, ErrUnknownAgentSubtype,
				"Agent merge request can only merge agent records")
		}
	}
	return nil
}
