// Datalyst - An AI Data Analyst Service in Go
//
// Datalyst answers natural-language questions about uploaded CSV datasets.
// A hosted chat model writes a structured analysis plan, a built-in dataset
// engine executes it (no generated code ever runs), and the answer comes
// back as a table, a Plotly figure specification, or a written summary.
//
// The service is organized as:
//
//   - dataset: columnar frame, statistics, quality validation, auto-correction
//   - graph: the state-graph engine driving the analyst pipeline
//   - llm: chat-model clients and the hybrid reasoning/visualization router
//   - agent: classify -> plan -> execute -> answer pipeline
//   - session: per-dataset sessions and pluggable question history
//     (memory, SQLite, Redis, PostgreSQL)
//   - chart: Plotly-compatible figure builders
//   - render: markdown-to-sanitized-HTML for summaries
//   - server: the HTTP API
//   - cmd/datalyst, cmd/datalyst-cli: the server and the one-shot CLI
package datalyst
