// Package llms wires the language-model side of courseqa: chat models built
// on langchaingo, embedders for the course index and long-term memory, token
// counting and token-usage accounting.
//
// Chat models are plain langchaingo llms.Model values, so anything that
// implements that interface (including the scripted model in llms/scripted)
// can drive the agents.
package llms
