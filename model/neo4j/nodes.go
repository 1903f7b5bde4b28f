// gatekeeper/model/neo4j/nodes.go
package echo_neo4j

// Node Labels
const (
	// LabelTarget is a query name or an application name that locks hang off
	LabelTarget = "Target"

	// LabelA11N is one policy record: a lock, a protector or a content marker
	LabelA11N = "A11N"
)
