// Package memory defines the two-tier memory model used by the memory-aware
// agents: session-scoped working memory (the running conversation) and
// user-scoped long-term memory (extracted or explicitly stored facts).
//
// Client is implemented by memory/server, which talks to an Agent Memory
// Server over HTTP, and by memory/local, which keeps working memory in Redis
// and long-term memory in a LongTermStore such as memory/sqlstore.
package memory
