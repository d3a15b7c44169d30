package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/eval"
)

func TestResolveStage(t *testing.T) {
	s, err := resolveStage("2", "hierarchical")
	require.NoError(t, err)
	assert.Equal(t, agents.StageEngineered, s)

	s, err = resolveStage("", "hierarchical")
	require.NoError(t, err)
	assert.Equal(t, agents.StageHierarchical, s)

	s, err = resolveStage("", "")
	require.NoError(t, err)
	assert.Equal(t, agents.StageHybridReAct, s)

	_, err = resolveStage("stage9", "")
	assert.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	r := &eval.Report{
		Suite: "smoke",
		Results: []eval.Result{
			{Case: eval.Case{Name: "ok"}, Passed: true, Response: "fine", Latency: time.Second, Tokens: 10},
			{Case: eval.Case{Name: "bad"}, Failures: []string{`response does not contain "CS001"`}, Response: "nothing\nuseful", Latency: time.Second, Tokens: 20},
		},
		Passed: 1,
		Failed: 1,
	}
	var out bytes.Buffer
	printReport(&out, agents.StageBaseline, r)

	text := out.String()
	assert.Contains(t, text, "Suite smoke on stage baseline")
	assert.Contains(t, text, `- response does not contain "CS001"`)
	assert.Contains(t, text, "nothing useful")
	assert.Contains(t, text, "1 passed, 1 failed (50%), avg 1.00s, 30 tokens")
}

func TestListSuites(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--list"})
	require.NoError(t, rootCmd.Execute())
	for _, name := range eval.PredefinedNames() {
		assert.Contains(t, out.String(), name)
	}
}
