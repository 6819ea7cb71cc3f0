package domain

import (
	"errors"
	"testing"
)

func mustRefs(t *testing.T, target string, victims ...string) (Ref, []Ref) {
	t.Helper()
	tr, vr, err := ParseReferences(FieldMergeRequest, target, victims)
	if err != nil {
		t.Fatalf("ParseReferences failed: %v", err)
	}
	return tr, vr
}

func TestParseReferences_Errors(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		victims []string
	}{
		{"bad target", "/nope/1", []string{"/subjects/2"}},
		{"bad victim", "/subjects/1", []string{"/nope/2"}},
		{"no victims", "/subjects/1", nil},
		{"self merge", "/subjects/1", []string{"/subjects/1"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseReferences(FieldMergeRequestDetail, tt.target, tt.victims)
			if !errors.Is(err, ErrInvalidReference) {
				t.Fatalf("expected ErrInvalidReference, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != FieldMergeRequestDetail || verr.Kind != "invalid_reference" {
				t.Errorf("unexpected validation error: %#v", err)
			}
		})
	}
}

func TestEnsureType(t *testing.T) {
	target, victims := mustRefs(t, "/subjects/1", "/subjects/2", "/subjects/3")
	if err := EnsureType(target, victims, RecordTypeSubject); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	target, victims = mustRefs(t, "/subjects/1", "/subjects/2", "/agents/people/3")
	err := EnsureType(target, victims, RecordTypeSubject)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if err.Error() != "merge_request: This merge request can only merge subject records" {
		t.Errorf("unexpected message: %s", err)
	}

	target, victims = mustRefs(t, "/agents/people/1", "/subjects/2")
	if err := EnsureType(target, victims, RecordTypeSubject); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected target mismatch, got %v", err)
	}
}

func TestCheckRepository(t *testing.T) {
	target, victims := mustRefs(t, "/repositories/2/resources/1", "/repositories/2/resources/5")
	if err := CheckRepository(target, victims, 2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := CheckRepository(target, victims, 3); !errors.Is(err, ErrRepositoryMismatch) {
		t.Errorf("expected ErrRepositoryMismatch, got %v", err)
	}

	target, victims = mustRefs(t, "/repositories/2/resources/1", "/repositories/4/resources/5")
	if err := CheckRepository(target, victims, 2); !errors.Is(err, ErrRepositoryMismatch) {
		t.Errorf("expected ErrRepositoryMismatch, got %v", err)
	}
}

func TestEnsureAgents(t *testing.T) {
	target, victims := mustRefs(t, "/agents/people/1", "/agents/families/2", "/agents/software/3")
	if err := EnsureAgents(FieldMergeRequest, target, victims); err != nil {
		t.Errorf("mixed agent subtypes should pass: %v", err)
	}

	target, victims = mustRefs(t, "/agents/people/1", "/subjects/2")
	err := EnsureAgents(FieldMergeRequestDetail, target, victims)
	if !errors.Is(err, ErrUnknownAgentSubtype) {
		t.Fatalf("expected ErrUnknownAgentSubtype, got %v", err)
	}
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Field != FieldMergeRequestDetail {
		t.Errorf("expected field %s, got %s", FieldMergeRequestDetail, verr.Field)
	}
}
