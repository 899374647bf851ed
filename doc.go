// Package mentor implements a chat-based tutoring assistant for data
// structures and algorithms. A Mentor drives a tool-calling loop against an
// LLM provider: the assistant step sends the session history to the model,
// the tools step executes any requested tools (a persistent Go code
// interpreter plus LLM-backed advisory tools), and the loop repeats until the
// model replies without tool calls. Progress streams to the caller as typed
// events.
//
// Subpackages provide the persistent execution environment (repl), the tool
// implementations (tools/runner, tools/advisor), LLM backends
// (provider/gemini, provider/openaicompat), OTEL instrumentation (observer),
// and the streaming HTTP front end (server).
package mentor
