// Package item defines the context-item domain types shared by the
// store, the watch engine, and the CLI.
//
// A context item is a key/value pair owned by a session, classified by
// category, priority, and channel. Every mutation of an item produces
// exactly one Change record; Change rows are the only thing the watch
// engine ever reads, so they carry denormalized copies of the
// classification fields (a deleted item must stay filterable after the
// item row is gone).
//
// Keys and filter patterns are NFC-normalized before storage and
// matching so that Unicode keys compare deterministically.
package item
