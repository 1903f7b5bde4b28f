// gatekeeper/model/neo4j/attributes.go
package echo_neo4j

// Attribute Keys
const (
	// AttrName is the target's query or application name
	AttrName = "name"

	// AttrPolicy is the record's policy code: A, E or C
	AttrPolicy = "policy"

	// AttrType is whitelist or blacklist
	AttrType = "type"

	// AttrQName is the qualifier for A records and the protector name for E records
	AttrQName = "qname"
)
