package planner

import "github.com/n9te9/fusion-query-planner/schema"

// planContext bundles the external collaborators of spec §6 that every
// handler and queue-branching function needs: the composite schema, the
// three partitioners, the operation-definition builder, and the tuned
// options. Built once per plan call by OperationPlanner and threaded
// through by value (it is itself immutable for the duration of a plan).
type planContext struct {
	Schema              schema.CompositeSchema
	Partitioner         schema.SelectionPartitioner
	TypePartitioner     schema.TypePartitioner
	NodeRootPartitioner schema.NodeRootPartitioner
	Builder             schema.OperationDefinitionBuilder
	Options             Options
	Sink                EventSink
}
