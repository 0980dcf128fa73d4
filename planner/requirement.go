package planner

import "fmt"

// Requirement is a named variable requirement belonging to a plan step
// (spec §3: "Operation requirement"): a stable key, the path at which data
// must be gathered from a dependency's result, and the selection telling the
// gateway where to read it.
type Requirement struct {
	Key          string // __fusion_<id>_<argName>
	TypeRef      string
	Path         []string
	SelectionMap []string // dotted path into the partial result to read the value from
}

// requirementKey builds the stable key of spec §3/§4.5: "__fusion_<id>_<argName>".
func requirementKey(id int, argName string) string {
	return fmt.Sprintf("__fusion_%d_%s", id, argName)
}
