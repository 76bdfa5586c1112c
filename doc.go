// Package plaso implements a forensic timeline extraction pipeline: it
// walks an evidence source, extracts timestamped events from the files it
// finds and persists them into a SQLite timeline database.
//
// # Architecture
//
// The pipeline is a producer/consumer system connected by queues:
//
//   - The collector walks a source (directory, single file, mounted image,
//     or its volume snapshot stores) breadth-first and emits one path
//     specification per discovered file onto the collection queue,
//     terminated by an end-of-input sentinel.
//   - A pool of workers pops path specifications, resolves them to file
//     entries through a virtual file system layer, runs every registered
//     parser against each entry, enriches the extracted events with source
//     facts from the knowledge base and pushes them onto the storage
//     queue. A worker that observes the sentinel signals it again before
//     terminating so the whole pool drains.
//   - The storage writer drains the storage queue into the SQLite store;
//     timeline ordering is established at read time.
//
// Before extraction starts, preprocessing plugins probe the source to
// determine its operating system, hostname, timezone and account table,
// recording the facts in the knowledge base shared by all workers.
//
// # Packages
//
//   - pathspec, event: the two value types flowing through the queues
//   - queue: in-memory, buffered and NATS JetStream queue backends
//   - vfs: file system abstraction, searching and archive resolution
//   - collector, worker, engine: the pipeline stages and their wiring
//   - parsers, preprocess: the plugin surfaces
//   - storage/sqlitestore: the timeline database
package plaso
