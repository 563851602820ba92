// Package watch implements the watcher subscription engine on top of
// the change log: filter specs and their validation, the pure matcher,
// and the Service that owns watcher lifecycle and polling.
//
// Delivery is pull-only. A watcher is created with a filter and a
// cursor pinned to the log's current watermark; each poll reads the
// unread range once, returns the matching subset, and advances the
// cursor past everything it considered - matching or not - so poll
// cost stays proportional to what happened since the last poll, never
// to session history.
package watch
