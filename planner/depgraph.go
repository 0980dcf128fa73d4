package planner

// addDependent returns a clone of n with consumerStepID recorded in the
// Dependents set of the step identified by prereqStepID — "this step is
// depended on by consumerStepID" (spec §4.5 handler (b): "add the new
// lookup step id to the candidate's dependents").
func addDependent(n *PlanNode, prereqStepID, consumerStepID int) *PlanNode {
	idx, step := n.StepByID(prereqStepID)
	if step == nil {
		return n
	}
	clone := step.clone()
	clone.Dependents[consumerStepID] = true
	return n.ReplaceStep(idx, clone)
}

// reachableViaDependents reports whether targetStepID is reachable from
// fromStepID by following Dependents edges forward (BFS), i.e. whether
// targetStepID (transitively) depends on fromStepID.
func reachableViaDependents(n *PlanNode, fromStepID, targetStepID int) bool {
	visited := map[int]bool{fromStepID: true}
	queue := []int{fromStepID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		_, step := n.StepByID(id)
		if step == nil {
			continue
		}
		for dep := range step.Dependents {
			if dep == targetStepID {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// dependsOn reports whether candidateStepID transitively depends on
// owningStepID — i.e. candidateStepID is reachable from owningStepID via
// Dependents (spec §9: "the dependsOn relation is the transitive closure of
// step dependents"). Used to reject inlining candidates that would close a
// cycle (spec §4.5 handler (c)).
func dependsOn(n *PlanNode, candidateStepID, owningStepID int) bool {
	if candidateStepID == owningStepID {
		return true
	}
	return reachableViaDependents(n, owningStepID, candidateStepID)
}
