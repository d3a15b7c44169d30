// Package graph is the small state-graph engine the course agents run on.
//
// A StateGraph[S] is built from named nodes that transform a typed state,
// static edges, and conditional edges that pick the next node at runtime.
// Compile validates the graph and returns a Runnable that executes nodes one
// at a time until END is reached.
//
//	g := graph.NewStateGraph[State]()
//	g.AddNode("research", "semantic search", research)
//	g.AddNode("synthesize", "answer generation", synthesize)
//	g.AddEdge("research", "synthesize")
//	g.AddEdge("synthesize", graph.END)
//	g.SetEntryPoint("research")
//
//	app, err := g.Compile()
//	final, err := app.Invoke(ctx, State{Query: "What is CS004?"})
package graph
