// Package prebuilt contains the text-based ReAct loop shared by the
// memory-aware course agents.
//
// The model answers in a fixed Thought / Action / Action Input format.
// ReActLoop parses each reply, runs the named tool through a ToolExecutor,
// feeds the observation back and stops on the FINISH action or when the
// iteration budget runs out, in which case a final answer is forced from the
// collected observations.
//
//	loop := prebuilt.NewReActLoop(model, prebuilt.HybridSearchReActPrompt, []tools.Tool{search})
//	loop.MaxIterations = 5
//	res, err := loop.Run(ctx, "What is CS002?", nil)
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Answer)
//
// Every step is recorded in ReActResult.Steps so callers can show the
// reasoning trace.
package prebuilt
