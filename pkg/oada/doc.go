// Package oada provides a typed client for the OADA REST API exposed by a
// Trellis document store.
//
// The store is a tree of JSON resources addressed by path. Resources carry
// storage-internal fields (_id, _rev, _type, _meta) alongside their payload;
// listing resources are link maps whose non-internal keys name child
// resources. The Listing type projects those link maps into plain key lists
// so callers never see the storage-internal fields.
//
// The client distinguishes "resource does not exist" (ErrNotFound) from every
// other failure. Fetcher wraps a Client with a bounded retry policy for the
// transient failures an eventually-consistent store produces under load.
package oada
