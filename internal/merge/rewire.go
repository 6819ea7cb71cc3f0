package merge

// ownerFields are the columns that tie a subrecord to its owning agent, in
// the order they are checked. The _0 variants appear on related-agent links.
var ownerFields = []string{
	"agent_person_id",
	"agent_family_id",
	"agent_corporate_entity_id",
	"agent_software_id",
	"agent_person_id_0",
	"agent_family_id_0",
	"agent_corporate_entity_id_0",
}

// RewireOwner points the first owner reference present on subrec at
// targetID. It returns the rewritten field name, or "" when the subrecord
// carries no owner reference.
func RewireOwner(subrec map[string]any, targetID any) string {
	for _, f := range ownerFields {
		if v, ok := subrec[f]; ok && v != nil && v != false {
			subrec[f] = targetID
			return f
		}
	}
	return ""
}
