// Package observability provides the process logger, the audit event log,
// run statistics and run notifications for runboard. Audit events are
// structured JSON Lines (JSONL); statistics are derived on demand from them.
package observability
