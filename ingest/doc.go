// Package ingest bulk loads JSON documents into a repository.
//
// A Loader reads newline-delimited JSON objects, turns each one into a model
// of a single class and inserts it through a storage.Repository. Inserts run
// concurrently on a worker pool. Records that fail to parse or insert are
// logged and counted but do not stop the load.
package ingest
