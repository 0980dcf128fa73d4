// Package config loads the planner's YAML configuration file, grounded in
// the teacher's gateway.yaml / loadGatewaySetting pattern
// (server/gateway.go), generalized from "subgraph host list" to "source
// schema SDL files plus cost-model weights".
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/n9te9/fusion-query-planner/planner"
)

// SourceSchema names one federated source schema's SDL files, mirroring the
// teacher's GatewayService (name, host, schema files) minus the transport
// host this repository's planner core has no use for.
type SourceSchema struct {
	Name        string   `yaml:"name"`
	SchemaFiles []string `yaml:"schema_files"`
}

// CostModelSetting maps onto planner.Options; a zero field falls back to
// planner.DefaultOptions() (see PlannerOptions below).
type CostModelSetting struct {
	DepthWeight            float64 `yaml:"depth_weight"`
	OperationWeight        float64 `yaml:"operation_weight"`
	ExcessFanoutWeight     float64 `yaml:"excess_fanout_weight"`
	FanoutPenaltyThreshold int     `yaml:"fanout_penalty_threshold"`
}

// OpentelemetryTracingSetting toggles the OTel event sink, named identically
// to the teacher's own opentelemetry.tracing.enable setting.
type OpentelemetryTracingSetting struct {
	Enable bool `yaml:"enable" default:"false"`
}

// OpentelemetrySetting mirrors the teacher's nested opentelemetry block.
type OpentelemetrySetting struct {
	TracingSetting OpentelemetryTracingSetting `yaml:"tracing"`
}

// PlannerSetting is the top-level planner configuration document, loaded
// from a YAML file the way the teacher loads gateway.yaml.
type PlannerSetting struct {
	ServiceName      string           `yaml:"service_name"`
	MaxExpandedNodes int              `yaml:"max_expanded_nodes"`
	CostModel        CostModelSetting `yaml:"cost_model"`
	Schemas          []SourceSchema   `yaml:"schemas"`
	Opentelemetry    OpentelemetrySetting `yaml:"opentelemetry"`
}

// Load reads and parses a planner settings file from path, the same
// open-read-unmarshal sequence as the teacher's loadGatewaySetting.
func Load(path string) (*PlannerSetting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open planner settings file: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read planner settings file: %w", err)
	}

	var settings PlannerSetting
	if err := yaml.Unmarshal(b, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal planner settings: %w", err)
	}
	return &settings, nil
}

// PlannerOptions converts the YAML cost-model block into planner.Options,
// leaving zero fields for planner.Options.withDefaults to fill in.
func (s *PlannerSetting) PlannerOptions() planner.Options {
	return planner.Options{
		DepthWeight:            s.CostModel.DepthWeight,
		OperationWeight:        s.CostModel.OperationWeight,
		ExcessFanoutWeight:     s.CostModel.ExcessFanoutWeight,
		FanoutPenaltyThreshold: s.CostModel.FanoutPenaltyThreshold,
	}
}

// SchemaSDLs reads every configured schema's SDL files and concatenates them
// per schema name, the input shape schema.NewComposite expects.
func (s *PlannerSetting) SchemaSDLs() (map[string][]byte, error) {
	out := make(map[string][]byte, len(s.Schemas))
	for _, sc := range s.Schemas {
		var sdl []byte
		for _, file := range sc.SchemaFiles {
			b, err := os.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read schema file %q for %q: %w", file, sc.Name, err)
			}
			sdl = append(sdl, b...)
			sdl = append(sdl, '\n')
		}
		out[sc.Name] = sdl
	}
	return out, nil
}
