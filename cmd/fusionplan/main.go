package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
	"github.com/spf13/cobra"

	"github.com/n9te9/fusion-query-planner/config"
	"github.com/n9te9/fusion-query-planner/eventsink"
	"github.com/n9te9/fusion-query-planner/planner"
	"github.com/n9te9/fusion-query-planner/schema"
)

const fusionplanVersion = "v0.0.0-rc"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fusionplan",
	Run: func(cmd *cobra.Command, args []string) {
		println("fusionplan " + fusionplanVersion)
	},
}

var configPath string
var operationPath string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a client operation against a composite schema and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd.Context())
	},
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	planCmd.Flags().StringVar(&configPath, "config", "fusionplan.yaml", "path to the planner settings file")
	planCmd.Flags().StringVar(&operationPath, "operation", "", "path to the client operation document")
	_ = planCmd.MarkFlagRequired("operation")

	rootCmd := cobra.Command{Use: "fusionplan"}
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(planCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func runPlan(ctx context.Context) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load planner settings: %w", err)
	}

	sdls, err := settings.SchemaSDLs()
	if err != nil {
		return err
	}

	composite, err := schema.NewComposite(sdls)
	if err != nil {
		return fmt.Errorf("failed to build composite schema: %w", err)
	}

	operationSrc, err := os.ReadFile(operationPath)
	if err != nil {
		return fmt.Errorf("failed to read operation file: %w", err)
	}
	operation, err := parseOperation(operationSrc)
	if err != nil {
		return fmt.Errorf("failed to parse operation: %w", err)
	}

	var sink planner.EventSink = planner.NoopSink{}
	if settings.Opentelemetry.TracingSetting.Enable {
		shutdown, err := eventsink.InitTracer(ctx, settings.ServiceName, fusionplanVersion)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("failed to shut down tracer", "error", err)
			}
		}()
		sink = eventsink.NewOTelSink(nil)
	} else {
		sink = eventsink.SlogSink{}
	}

	p := planner.NewOperationPlanner(planner.PlannerConfig{
		Schema:           composite,
		Partitioner:      schema.NewSelectionPartitioner(composite),
		Options:          settings.PlannerOptions(),
		Sink:             sink,
		MaxExpandedNodes: settings.MaxExpandedNodes,
	})

	id := uuid.NewString()
	hash := uuid.NewString()
	plan, err := p.CreatePlan(ctx, id, hash, hash[:8], operation)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	fmt.Println(plan.String())
	return nil
}

// parseOperation extracts the first operation definition out of a parsed
// GraphQL document, the counterpart to schema.ParseSDL for client operation
// documents rather than SDL documents.
func parseOperation(src []byte) (*ast.OperationDefinition, error) {
	l := lexer.New(string(src))
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		return nil, fmt.Errorf("operation parse error: %v", p.Errors())
	}
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			return op, nil
		}
	}
	return nil, fmt.Errorf("no operation definition found")
}
