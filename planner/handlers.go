package planner

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/fusion-query-planner/schema"
	"github.com/n9te9/fusion-query-planner/selset"
)

// buildOperationStepBranch is the shared tail of spec §4.5 handlers (a),
// (b) and (d): partition item's selection set against schemaName, abandon
// the branch if nothing is resolvable there, otherwise push whatever isn't
// back onto the backlog, build the rewritten operation definition through
// the operation-definition builder, and append the resulting step.
//
// binding is non-nil when the step resolves via a lookup field call rather
// than a plain root selection; requirements are the OperationRequirements
// (already bound to fresh __fusion_<id>_<argName> variables) the step
// carries, if any.
func buildOperationStepBranch(n *PlanNode, backlog Backlog, item *WorkItem, schemaName string, opType ast.OperationType, binding *schema.LookupBinding, requirements map[string]*Requirement, ctx *planContext) (*PlanNode, error) {
	builder := n.Index.Builder()
	partOut, err := ctx.Partitioner.Partition(schema.PartitionInput{
		SchemaName:   schemaName,
		ParentType:   item.SelectionSet.ParentType,
		SelectionSet: item.SelectionSet.Selections,
		Path:         item.SelectionSet.Path,
		Index:        builder,
	})
	if err != nil {
		return nil, externalFailure("buildOperationStepBranch.partition", err)
	}
	if partOut.Resolvable == nil {
		return nil, nil
	}

	stepID := n.NextStepID()
	def, builder, path, err := ctx.Builder.Build(opType, fmt.Sprintf("Op%d", stepID), partOut.Resolvable, builder, binding)
	if err != nil {
		return nil, err
	}

	rootID, _ := builder.IDForPath(path)
	if requirements == nil {
		requirements = map[string]*Requirement{}
	}

	selectionSetIDs := map[int]bool{rootID: true}
	for id := range partOut.CoveredSelectionSetIDs {
		selectionSetIDs[id] = true
	}

	step := &Step{
		Kind:               StepKindOperation,
		ID:                 stepID,
		Definition:         def,
		EntityType:         item.SelectionSet.ParentType,
		RootSelectionSetID: rootID,
		SelectionSetIDs:    selectionSetIDs,
		Dependents:         cloneDependents(item.Dependents),
		Requirements:        requirements,
		SourcePath:         pathStrings(item.SelectionSet.Path),
		TargetPath:         pathStrings(path),
		SchemaName:         schemaName,
	}
	if binding != nil {
		step.Lookup = &lookupRef{SchemaName: binding.Lookup.SchemaName, FieldName: binding.Lookup.FieldName, TargetType: binding.Lookup.TargetType}
	}

	next := n.WithIndexBuilder(builder)
	nextBacklog := backlog.PushUnresolvable(toNodeAtDepth(partOut.Unresolvable, item.EstimatedDepth), schemaName)
	nextBacklog = nextBacklog.PushRequirements(partOut.FieldsWithRequirements, stepID, item.EstimatedDepth)
	next = next.AddOperationStep(step, item.EstimatedDepth)
	next = next.WithBacklog(nextBacklog)
	return next, nil
}

// bindRequirementArguments binds a lookup's (or a plain field's @require
// declaration's) ordered requirement fields to fresh requirement variables,
// returning the updated plan node (carrying the bumped requirement-id
// counter), the OperationRequirement map keyed by the fresh variables, and
// the argument nodes ready to attach to the field/lookup call.
func bindRequirementArguments(n *PlanNode, argNames []string, fields []schema.FieldSelectionMap, declaringType string, ctx *planContext) (*PlanNode, map[string]*Requirement, []*ast.Argument) {
	reqs := make(map[string]*Requirement, len(argNames))
	args := make([]*ast.Argument, 0, len(argNames))
	for i, argName := range argNames {
		var reqID int
		n, reqID = n.NextRequirementID()
		key := requirementKey(reqID, argName)
		var path []string
		if i < len(fields) {
			path = fields[i].Path
		}
		reqs[key] = &Requirement{
			Key:          key,
			TypeRef:      typeRefForPath(declaringType, path, ctx.Schema),
			Path:         path,
			SelectionMap: path,
		}
		args = append(args, &ast.Argument{Name: identName(argName), Value: &ast.Variable{Name: key}})
	}
	return n, reqs, args
}

func bindLookupArguments(n *PlanNode, lookup *schema.Lookup, ctx *planContext) (*PlanNode, map[string]*Requirement, []*ast.Argument) {
	return bindRequirementArguments(n, lookup.Arguments, lookup.Fields, lookup.TargetType, ctx)
}

// handlePlanRootOrLookup implements spec §4.5 handler (a) for a Root work
// item: schemaName has already been chosen by the queue's branchRoot
// (one branch per schema.PossibleSchemas candidate).
func handlePlanRootOrLookup(template *PlanNode, backlog Backlog, item *WorkItem, schemaName string, resolutionCost float64, ctx *planContext) (*PlanNode, error) {
	n := template.WithSchema(schemaName, resolutionCost)
	opType := n.operationType()
	if item.Kind == WorkItemLookup {
		opType = ast.Query
	}
	return buildOperationStepBranch(n, backlog, item, schemaName, opType, nil, nil, ctx)
}

// handlePlanLookupWithRequirements implements spec §4.5 handler (b): first
// try to satisfy lookup's own requirement (key) selections by inlining them
// into existing steps elsewhere, then build the lookup's own operation step
// on lookup.SchemaName with its arguments bound to the resulting requirement
// variables.
func handlePlanLookupWithRequirements(template *PlanNode, backlog Backlog, item *WorkItem, lookup *schema.Lookup, ctx *planContext) (*PlanNode, error) {
	consumerStepID := template.NextStepID()
	n, backlog, err := inlineLookupRequirements(template, backlog, item, lookup, consumerStepID, ctx)
	if err != nil {
		return nil, err
	}

	n, reqs, args := bindLookupArguments(n, lookup, ctx)
	binding := &schema.LookupBinding{Lookup: lookup, Arguments: args, Type: lookup.TargetType}
	return buildOperationStepBranch(n, backlog, item, lookup.SchemaName, ast.Query, binding, reqs, ctx)
}

// handlePlanLookupViaPathWalk is the fallback of spec §4.4 "Lookup operation
// item": when no schema exposes a direct or ordered lookup for item's type,
// walk the operation path upward looking for an ancestor step already
// planned on a schema that does carry a lookup for the type. Per spec §9
// Open Question (2), finding nothing here silently yields no branch.
func handlePlanLookupViaPathWalk(template *PlanNode, backlog Backlog, item *WorkItem, ctx *planContext) (*PlanNode, error) {
	typeName := item.SelectionSet.ParentType
	for _, schemaName := range ancestorSchemasOf(template, item.SelectionSet.Path) {
		for _, lookup := range ctx.Schema.PossibleLookupsOrdered(typeName, schemaName) {
			next, err := handlePlanLookupWithRequirements(template, backlog, item, lookup, ctx)
			if err != nil {
				return nil, err
			}
			if next != nil {
				return next, nil
			}
		}
	}
	return nil, nil
}

// ancestorSchemasOf returns, in ordinal order, the distinct schema names of
// already-built operation steps whose root selection set sits at a prefix
// of path — candidate schemas for the path-walk lookup fallback.
func ancestorSchemasOf(n *PlanNode, path selset.Path) []string {
	seen := map[string]bool{}
	for _, s := range n.Steps {
		if s.Kind != StepKindOperation {
			continue
		}
		node := n.Index.NodeByID(s.RootSelectionSetID)
		if node == nil || !isPathPrefix(node.Path, path) || len(node.Path) >= len(path) {
			continue
		}
		seen[s.SchemaName] = true
	}
	return sortedStringKeys(seen)
}

// handleInlineFieldRequirement implements spec §4.5 handler (c): a
// field-requirement work item with no bound lookup means "inline into
// siblings/parents". It only succeeds when the owning step's own schema
// declares source-field requirements for the field (i.e. the schema owns
// the field outright but needs sibling data first) and every requirement
// selection can be merged into some other, non-cyclic existing step.
func handleInlineFieldRequirement(template *PlanNode, backlog Backlog, item *WorkItem, ctx *planContext) (*PlanNode, error) {
	_, owningStep := template.StepByID(item.OwningStep)
	if owningStep == nil {
		return nil, invariantViolation("handleInlineFieldRequirement", fmt.Errorf("owning step %d not found", item.OwningStep))
	}

	fieldName := item.Field.Field.Name.String()
	reqFields, ok := ctx.Schema.TryFieldRequirements(item.Field.DeclaringType, fieldName, owningStep.SchemaName)
	if !ok || len(reqFields) == 0 {
		return nil, nil
	}
	reqSelections := requirementSelectionsOfFields(reqFields)

	n, remaining, inlined := TryInlineFieldRequirements(template, item.OwningStep, item.Field.DeclaringType, reqSelections, owningStep.SchemaName, ctx)
	if !inlined || len(remaining) > 0 {
		return nil, nil
	}

	n, reqs, args := bindRequirementArguments(n, argNamesOfFields(reqFields), reqFields, item.Field.DeclaringType, ctx)

	fieldCopy := *item.Field.Field
	fieldCopy.Arguments = append(append([]*ast.Argument(nil), fieldCopy.Arguments...), args...)

	builder := n.Index.Builder()
	newDef, err := InlineSelections(owningStep.Definition, builder, rootTypeForStep(n, owningStep), owningStep.RootSelectionSetID, []ast.Selection{&fieldCopy}, false)
	if err != nil {
		return nil, err
	}

	updated := owningStep.clone()
	updated.Definition = newDef
	for k, v := range reqs {
		updated.Requirements[k] = v
	}

	idx, _ := n.StepByID(item.OwningStep)
	n = n.WithIndexBuilder(builder)
	n = n.ReplaceStep(idx, updated)
	n = n.WithBacklog(backlog)
	return n, nil
}

// handlePlanFieldRequirementViaLookup implements spec §4.5 handler (d): a
// field-requirement work item bound to lookup. It treats the field exactly
// like a Lookup operation item rooted one level up (at the entity that
// declares the field), reusing handler (b)'s own-requirement-inlining and
// step-building contract so the same schema fit and argument binding apply.
func handlePlanFieldRequirementViaLookup(template *PlanNode, backlog Backlog, item *WorkItem, lookup *schema.Lookup, ctx *planContext) (*PlanNode, error) {
	entityPath := item.Field.Path
	if len(entityPath) > 0 {
		entityPath = entityPath[:len(entityPath)-1]
	}
	entitySS := newSelsetNode(item.Field.DeclaringType, entityPath, []ast.Selection{item.Field.Field})
	lookupItem := newOperationWorkItem(WorkItemLookup, entitySS, nil, lookup.SchemaName, item.ParentDepth)
	lookupItem.Dependents = cloneDependents(item.Dependents)

	return handlePlanLookupWithRequirements(template, backlog, lookupItem, lookup, ctx)
}

// handlePlanNodeLookup implements spec §4.5 handler (f): a bound
// NodeLookupWorkItem resolves one concrete type's selections under a
// previously introduced node(id:) field via lookup, attaching the result as
// a branch of that NodeFieldPlanStep.
func handlePlanNodeLookup(template *PlanNode, backlog Backlog, item *WorkItem, lookup *schema.Lookup, ctx *planContext) (*PlanNode, error) {
	if len(lookup.Arguments) != 1 {
		return nil, invariantViolation("handlePlanNodeLookup", fmt.Errorf("lookup %s.%s takes %d arguments, want exactly 1", lookup.SchemaName, lookup.FieldName, len(lookup.Arguments)))
	}

	idx, nodeFieldStep := template.StepByID(item.NodeStepID)
	if nodeFieldStep == nil || nodeFieldStep.Kind != StepKindNodeField {
		return nil, invariantViolation("handlePlanNodeLookup", fmt.Errorf("no NodeFieldPlanStep %d in scope", item.NodeStepID))
	}

	builder := template.Index.Builder()
	partOut, err := ctx.Partitioner.Partition(schema.PartitionInput{
		SchemaName:   lookup.SchemaName,
		ParentType:   item.ConcreteType,
		SelectionSet: item.SelectionSet.Selections,
		Path:         item.SelectionSet.Path,
		Index:        builder,
	})
	if err != nil {
		return nil, externalFailure("handlePlanNodeLookup.partition", err)
	}
	if partOut.Resolvable == nil {
		return nil, nil
	}
	resolvable := partOut.Resolvable
	if !hasUnaliasedTypename(resolvable) {
		resolvable = append(resolvable, plainTypenameField())
	}

	idArg := &ast.Argument{Name: identName(lookup.Arguments[0]), Value: nodeFieldStep.IDValueNode}
	binding := &schema.LookupBinding{Lookup: lookup, Arguments: []*ast.Argument{idArg}, Type: lookup.TargetType}

	stepID := template.NextStepID()
	def, builder, path, err := ctx.Builder.Build(ast.Query, fmt.Sprintf("NodeOp%d", stepID), resolvable, builder, binding)
	if err != nil {
		return nil, err
	}
	rootID, _ := builder.IDForPath(path)

	selectionSetIDs := map[int]bool{rootID: true}
	for id := range partOut.CoveredSelectionSetIDs {
		selectionSetIDs[id] = true
	}

	step := &Step{
		Kind:               StepKindOperation,
		ID:                 stepID,
		Definition:         def,
		EntityType:         item.ConcreteType,
		RootSelectionSetID: rootID,
		SelectionSetIDs:    selectionSetIDs,
		Dependents:         map[int]bool{},
		Requirements:       map[string]*Requirement{},
		SourcePath:         pathStrings(item.SelectionSet.Path),
		TargetPath:         pathStrings(path),
		SchemaName:         lookup.SchemaName,
		Lookup:             &lookupRef{SchemaName: lookup.SchemaName, FieldName: lookup.FieldName, TargetType: lookup.TargetType},
	}

	next := appendOperationStepWithBacklog(template, builder, backlog, partOut, step, item)

	updatedNodeStep := nodeFieldStep.clone()
	if updatedNodeStep.Branches == nil {
		updatedNodeStep.Branches = make(map[string]*Step)
	}
	updatedNodeStep.Branches[item.ConcreteType] = step
	idx2, _ := next.StepByID(nodeFieldStep.ID)
	if idx2 < 0 {
		idx2 = idx
	}
	next = next.ReplaceStep(idx2, updatedNodeStep)
	return next, nil
}

// appendOperationStepWithBacklog is the shared tail of handlePlanNodeLookup:
// seal the updated index, push the partition's leftovers onto the backlog,
// and append the freshly built operation step.
func appendOperationStepWithBacklog(n *PlanNode, builder *selset.Builder, backlog Backlog, partOut schema.PartitionOutput, step *Step, item *WorkItem) *PlanNode {
	next := n.WithIndexBuilder(builder)
	nextBacklog := backlog.PushUnresolvable(toNodeAtDepth(partOut.Unresolvable, item.EstimatedDepth), step.SchemaName)
	nextBacklog = nextBacklog.PushRequirements(partOut.FieldsWithRequirements, step.ID, item.EstimatedDepth)
	next = next.AddOperationStep(step, item.EstimatedDepth)
	next = next.WithBacklog(nextBacklog)
	return next
}
