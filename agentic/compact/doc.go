// Package compact shrinks an agent transcript once it approaches the model's
// context window.
//
// A compaction pass runs in a fixed order:
//
//  1. Count tokens for the whole transcript through the provider. Below
//     ContextTokenLimit × ThresholdRatio nothing happens and the caller's
//     slice is handed back untouched.
//  2. Partition the transcript into the head (leading system messages,
//     always kept verbatim) and the rest.
//  3. Persist the rest as indented JSON under
//     <OutputDir>/<SessionID>/compact-<timestamp>-<seq>.json. This file is the
//     audit trail for everything the summary replaces; a failed write is
//     logged and compaction carries on.
//  4. Summarize the rest through the provider, retrying with exponential
//     backoff (1s, 2s, 4s, ...). If every attempt fails the original
//     transcript is returned and the caller should try again on a later turn.
//  5. Re-read the files most recently opened with the read_file tool, within
//     the per-file and total token caps, refusing anything outside WorkDir.
//  6. Assemble head, a summary user/assistant pair and one user/assistant
//     pair per restored file, then recount tokens for the statistics.
//
// Every collaborator (LLMClient, BodyWriter, FileReader, log.Logger) is an
// interface so the whole pipeline can run against fakes.
//
// # Concurrency
//
// A Compactor is safe for concurrent use. The only shared state is the
// Sequence used to name persisted bodies, which is incremented atomically.
package compact
