package prebuilt

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tmc/langchaingo/tools"
)

// ErrToolNotFound is returned for an invocation of an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// ToolInvocation names a tool and the raw input to call it with.
type ToolInvocation struct {
	Tool      string
	ToolInput string
}

// ToolExecutor dispatches invocations to tools by name.
type ToolExecutor struct {
	tools map[string]tools.Tool
}

// NewToolExecutor registers ts. Later tools win on duplicate names.
func NewToolExecutor(ts []tools.Tool) *ToolExecutor {
	e := &ToolExecutor{tools: make(map[string]tools.Tool, len(ts))}
	for _, t := range ts {
		e.tools[t.Name()] = t
	}
	return e
}

// Execute calls the named tool.
func (e *ToolExecutor) Execute(ctx context.Context, inv ToolInvocation) (string, error) {
	t, ok := e.tools[inv.Tool]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, inv.Tool)
	}
	return t.Call(ctx, inv.ToolInput)
}

// Has reports whether name is registered.
func (e *ToolExecutor) Has(name string) bool {
	_, ok := e.tools[name]
	return ok
}

// Names lists the registered tools in sorted order.
func (e *ToolExecutor) Names() []string {
	names := make([]string, 0, len(e.tools))
	for n := range e.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
