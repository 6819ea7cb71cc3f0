package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// RecordType names a kind of stored record.
type RecordType string

const (
	RecordTypeSubject          RecordType = "subject"
	RecordTypeContainerProfile RecordType = "container_profile"
	RecordTypeResource         RecordType = "resource"
	RecordTypeDigitalObject    RecordType = "digital_object"
	RecordTypeArchivalObject   RecordType = "archival_object"
	RecordTypeAccession        RecordType = "accession"
	RecordTypeTopContainer     RecordType = "top_container"
	RecordTypeLocation         RecordType = "location"
	RecordTypeRepository       RecordType = "repository"

	RecordTypeAgentPerson          RecordType = "agent_person"
	RecordTypeAgentFamily          RecordType = "agent_family"
	RecordTypeAgentCorporateEntity RecordType = "agent_corporate_entity"
	RecordTypeAgentSoftware        RecordType = "agent_software"
)

// IsAgent reports whether the type is one of the agent subtypes.
func (t RecordType) IsAgent() bool {
	switch t {
	case RecordTypeAgentPerson, RecordTypeAgentFamily, RecordTypeAgentCorporateEntity, RecordTypeAgentSoftware:
		return true
	}
	return false
}

// Ref is a parsed record URI.
type Ref struct {
	URI        string     `json:"uri"`
	Type       RecordType `json:"type"`
	ID         int64      `json:"id"`
	Repository string     `json:"repository,omitempty"` // e.g. /repositories/2
}

type uriPattern struct {
	re      *regexp.Regexp
	typ     RecordType
	hasRepo bool
}

var uriPatterns = []uriPattern{
	{regexp.MustCompile(`^/subjects/(\d+)$`), RecordTypeSubject, false},
	{regexp.MustCompile(`^/container_profiles/(\d+)$`), RecordTypeContainerProfile, false},
	{regexp.MustCompile(`^/locations/(\d+)$`), RecordTypeLocation, false},
	{regexp.MustCompile(`^/agents/people/(\d+)$`), RecordTypeAgentPerson, false},
	{regexp.MustCompile(`^/agents/families/(\d+)$`), RecordTypeAgentFamily, false},
	{regexp.MustCompile(`^/agents/corporate_entities/(\d+)$`), RecordTypeAgentCorporateEntity, false},
	{regexp.MustCompile(`^/agents/software/(\d+)$`), RecordTypeAgentSoftware, false},
	{regexp.MustCompile(`^/repositories/(\d+)$`), RecordTypeRepository, false},
	{regexp.MustCompile(`^(/repositories/\d+)/resources/(\d+)$`), RecordTypeResource, true},
	{regexp.MustCompile(`^(/repositories/\d+)/digital_objects/(\d+)$`), RecordTypeDigitalObject, true},
	{regexp.MustCompile(`^(/repositories/\d+)/archival_objects/(\d+)$`), RecordTypeArchivalObject, true},
	{regexp.MustCompile(`^(/repositories/\d+)/accessions/(\d+)$`), RecordTypeAccession, true},
	{regexp.MustCompile(`^(/repositories/\d+)/top_containers/(\d+)$`), RecordTypeTopContainer, true},
}

// ParseReference parses a record URI such as /agents/people/3 or
// /repositories/2/resources/5.
func ParseReference(uri string) (Ref, error) {
	for _, p := range uriPatterns {
		m := p.re.FindStringSubmatch(uri)
		if m == nil {
			continue
		}
		ref := Ref{URI: uri, Type: p.typ}
		idText := m[1]
		if p.hasRepo {
			ref.Repository = m[1]
			idText = m[2]
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return Ref{}, fmt.Errorf("invalid record id in %q: %w", uri, err)
		}
		ref.ID = id
		return ref, nil
	}
	return Ref{}, fmt.Errorf("unrecognized record uri %q", uri)
}

// RepositoryURI returns the uri of a repository id.
func RepositoryURI(repoID int64) string {
	return fmt.Sprintf("/repositories/%d", repoID)
}
