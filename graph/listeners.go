package graph

import "context"

// NodeEvent is the kind of node lifecycle event delivered to listeners.
type NodeEvent string

const (
	NodeEventStart    NodeEvent = "start"
	NodeEventComplete NodeEvent = "complete"
	NodeEventError    NodeEvent = "error"
)

// NodeListener receives node lifecycle events.
type NodeListener[S any] interface {
	OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state S, err error)
}

// NodeListenerFunc is a function adapter for NodeListener
type NodeListenerFunc[S any] func(ctx context.Context, event NodeEvent, nodeName string, state S, err error)

// OnNodeEvent implements the NodeListener interface
func (f NodeListenerFunc[S]) OnNodeEvent(ctx context.Context, event NodeEvent, nodeName string, state S, err error) {
	f(ctx, event, nodeName, state, err)
}
