// Package tool provides the langchaingo tools used by the course advisor
// agents.
//
// Course tools search and inspect the catalog:
//
//   - search_courses: exact, semantic or hybrid search rendered with
//     progressive disclosure (CourseSearch, or HierarchicalSearch for the
//     intent-driven variant used with native tool calling)
//   - get_course_details, check_prerequisites, get_recommendations
//   - list_departments
//
// Memory tools read and write a student's long-term memory through a
// memory.Client:
//
//   - store_memory, search_memories
//   - summarize_user_knowledge, clear_user_memories
//
// Every tool takes a JSON object as input. Tools with a single main
// parameter also accept a bare string.
//
//	ts := append(tool.NewCourseTools(manager, hierarchical, client, "alice"),
//		tool.NewMemoryTools(client, "alice", model)...)
//	loop := prebuilt.NewReActLoop(model, prebuilt.MemoryReActPrompt, ts)
package tool
