// gatekeeper/model/neo4j/relationships.go
package echo_neo4j

// Relationship Types
const (
	// RelLockedBy links a target to each of its policy records
	RelLockedBy = "LOCKED_BY"
)
