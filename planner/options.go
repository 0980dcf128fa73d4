package planner

// Options tunes the cost model, spec §3/§9. NewOperationPlanner fills every
// zero field from DefaultOptions(), so a zero-value Options means "all
// defaults"; values can also be loaded from YAML (see config.go).
type Options struct {
	DepthWeight            float64
	OperationWeight        float64
	ExcessFanoutWeight     float64
	FanoutPenaltyThreshold int
}

// DefaultOptions returns the weights named in spec §3/§6.
func DefaultOptions() Options {
	return Options{
		DepthWeight:            15.0,
		OperationWeight:        1.5,
		ExcessFanoutWeight:     3.0,
		FanoutPenaltyThreshold: 8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DepthWeight == 0 {
		o.DepthWeight = d.DepthWeight
	}
	if o.OperationWeight == 0 {
		o.OperationWeight = d.OperationWeight
	}
	if o.ExcessFanoutWeight == 0 {
		o.ExcessFanoutWeight = d.ExcessFanoutWeight
	}
	if o.FanoutPenaltyThreshold == 0 {
		o.FanoutPenaltyThreshold = d.FanoutPenaltyThreshold
	}
	return o
}

// Cost-model constants from spec §4.3. Unexported: callers tune Options, not
// these — they are properties of the estimator itself, not policy knobs.
const (
	perOperationStepCost   = 10.0
	perRequirementLookup   = 12.0
	perInlineLikelyCost    = 1.0
	requirementSpilloverMarker = "$requirement$"
)
