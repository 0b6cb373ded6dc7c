package chat

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"chatrelay/internal/logger"
	"chatrelay/pkg/metrics"
)

// Filter drops messages on the publish side using CEL expressions. Each
// expression sees the message fields and returns true to drop. Expressions
// are compiled once at startup; a compile error is fatal, an evaluation
// error lets the message through.
type Filter struct {
	programs []cel.Program
	logger   logger.Logger
}

func NewFilter(expressions []string, log logger.Logger) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("content", cel.StringType),
		cel.Variable("sender", cel.StringType),
		cel.Variable("receiver", cel.StringType),
		cel.Variable("region", cel.StringType),
		cel.Variable("family", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	programs := make([]cel.Program, 0, len(expressions))
	for _, expr := range expressions {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile filter expression %q: %w", expr, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("filter expression %q must return bool, got %v", expr, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL program for %q: %w", expr, err)
		}
		programs = append(programs, program)
	}

	return &Filter{programs: programs, logger: log}, nil
}

// Drop reports whether any configured expression matches the message.
func (f *Filter) Drop(ctx context.Context, family Family, content, sender, receiver, region string) bool {
	if len(f.programs) == 0 {
		return false
	}

	vars := map[string]interface{}{
		"content":  content,
		"sender":   sender,
		"receiver": receiver,
		"region":   region,
		"family":   family.String(),
	}

	for _, program := range f.programs {
		result, _, err := program.ContextEval(ctx, vars)
		if err != nil {
			f.logger.WarnwCtx(ctx, "Filter evaluation failed, passing message through",
				"error", err,
			)
			continue
		}
		matched, ok := result.Value().(bool)
		if ok && matched {
			metrics.FilteredMessagesTotal.WithLabelValues(family.String()).Inc()
			return true
		}
	}
	return false
}
