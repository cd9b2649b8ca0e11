// Package ods holds the core ODS data model: the sealed Value types, the
// Record normalizer, string-keyed sorting/deduplication, record
// validation, and the Instance store with its derived metadata.
//
// Everything here is single-threaded and synchronous. An Instance is
// mutated only by the engine that owns it; callers requiring concurrent
// access must serialize externally.
package ods
