// Package store persists storyreel projects in SQLite.
//
// It owns the embedded schema and the data model shared by the pipeline:
// projects and their lifecycle status, the selected idea, the script (one per
// project), the extracted asset catalog, and the per-scene render ledger keyed
// by (project, scene index). Writes are single-statement and retried briefly
// when SQLite reports the database as busy.
package store
