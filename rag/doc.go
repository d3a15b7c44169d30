// Package rag stores and searches the course catalog.
//
// CourseManager embeds courses into a CourseStore (rag/store keeps them in
// Redis) and answers semantic searches, exact course-code lookups and
// recommendations. The subpackages build on it:
//
//   - rag/loader: populates an empty index from the hierarchical catalog
//   - rag/retriever: semantic, keyword, exact and hybrid (RRF) retrieval
//   - rag/assembler: renders search results as raw or engineered context
//
// Basic usage:
//
//	client, err := store.NewClient(store.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//		return err
//	}
//	manager := rag.NewCourseManager(store.NewRedisCourseStore(client, "courses"), embedder)
//	courses, err := manager.SearchCourses(ctx, "beginner programming", 5, nil)
package rag
