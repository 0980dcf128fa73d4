package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	return path
}

func TestLoadParsesFullSettingsDocument(t *testing.T) {
	dir := t.TempDir()
	productsSDL := writeFile(t, dir, "products.graphql", "type Query { a: Int }")
	configPath := writeFile(t, dir, "fusionplan.yaml", `
service_name: test-planner
max_expanded_nodes: 5000
cost_model:
  depth_weight: 20
  operation_weight: 2
  excess_fanout_weight: 4
  fanout_penalty_threshold: 10
schemas:
  - name: products
    schema_files:
      - `+productsSDL+`
opentelemetry:
  tracing:
    enable: true
`)

	settings, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.ServiceName != "test-planner" {
		t.Fatalf("ServiceName = %q, want test-planner", settings.ServiceName)
	}
	if settings.MaxExpandedNodes != 5000 {
		t.Fatalf("MaxExpandedNodes = %d, want 5000", settings.MaxExpandedNodes)
	}
	if !settings.Opentelemetry.TracingSetting.Enable {
		t.Fatalf("expected tracing to be enabled")
	}
	if len(settings.Schemas) != 1 || settings.Schemas[0].Name != "products" {
		t.Fatalf("unexpected schemas: %+v", settings.Schemas)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error loading a nonexistent settings file")
	}
}

func TestPlannerOptionsCarriesCostModelFields(t *testing.T) {
	s := &PlannerSetting{CostModel: CostModelSetting{
		DepthWeight:            20,
		OperationWeight:        2,
		ExcessFanoutWeight:     4,
		FanoutPenaltyThreshold: 10,
	}}
	opts := s.PlannerOptions()
	if opts.DepthWeight != 20 || opts.OperationWeight != 2 || opts.ExcessFanoutWeight != 4 || opts.FanoutPenaltyThreshold != 10 {
		t.Fatalf("PlannerOptions() = %+v, want a direct passthrough of the cost model settings", opts)
	}
}

func TestSchemaSDLsConcatenatesFilesPerSchema(t *testing.T) {
	dir := t.TempDir()
	part1 := writeFile(t, dir, "a.graphql", "type Query { a: Int }")
	part2 := writeFile(t, dir, "b.graphql", "type A { id: ID! }")

	s := &PlannerSetting{Schemas: []SourceSchema{
		{Name: "s1", SchemaFiles: []string{part1, part2}},
	}}
	sdls, err := s.SchemaSDLs()
	if err != nil {
		t.Fatalf("SchemaSDLs: %v", err)
	}
	got := string(sdls["s1"])
	if got != "type Query { a: Int }\ntype A { id: ID! }\n" {
		t.Fatalf("SchemaSDLs()[s1] = %q, want concatenated file contents separated by newlines", got)
	}
}

func TestSchemaSDLsMissingFileReturnsError(t *testing.T) {
	s := &PlannerSetting{Schemas: []SourceSchema{
		{Name: "s1", SchemaFiles: []string{"/nonexistent/path.graphql"}},
	}}
	if _, err := s.SchemaSDLs(); err == nil {
		t.Fatalf("expected an error for a missing schema file")
	}
}
