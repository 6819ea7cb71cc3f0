// Package mergereq validates merge requests and carries them out against the
// record store.
package mergereq

import (
	"encoding/json"
	"fmt"
)

// Kind names the record family a plain merge request applies to.
type Kind string

const (
	KindSubject          Kind = "subject"
	KindContainerProfile Kind = "container_profile"
	KindAgent            Kind = "agent"
	KindResource         Kind = "resource"
	KindDigitalObject    Kind = "digital_object"
)

// Kinds lists every kind accepted by Merge.
func Kinds() []Kind {
	return []Kind{KindSubject, KindContainerProfile, KindAgent, KindResource, KindDigitalObject}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown merge kind %q", s)
}

// Reference points at a stored record.
type Reference struct {
	Ref string `json:"ref"`
}

// MergeRequest asks for victims to be folded into target.
type MergeRequest struct {
	URI     string      `json:"uri,omitempty"`
	Target  Reference   `json:"target"`
	Victims []Reference `json:"victims"`
}

// VictimURIs returns the victims' uris in request order.
func (r MergeRequest) VictimURIs() []string {
	out := make([]string, len(r.Victims))
	for i, v := range r.Victims {
		out[i] = v.Ref
	}
	return out
}

// MergeRequestDetail is an agent merge request that also carries the field
// selections to copy from the first victim.
type MergeRequestDetail struct {
	MergeRequest
	Selections json.RawMessage `json:"selections,omitempty"`
}

// DecodeMergeRequest decodes a JSON merge request.
func DecodeMergeRequest(data []byte) (MergeRequest, error) {
	var req MergeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return MergeRequest{}, fmt.Errorf("failed to decode merge request: %w", err)
	}
	return req, nil
}

// DecodeMergeRequestDetail decodes a JSON detailed merge request.
func DecodeMergeRequestDetail(data []byte) (MergeRequestDetail, error) {
	var req MergeRequestDetail
	if err := json.Unmarshal(data, &req); err != nil {
		return MergeRequestDetail{}, fmt.Errorf("failed to decode merge request detail: %w", err)
	}
	return req, nil
}
