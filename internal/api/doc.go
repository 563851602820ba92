// Package api exposes the watch surface as one multiplexed operation
// with an action discriminator, the way assistant tool protocols frame
// it: a single JSON request whose "action" field selects create, poll,
// list, or stop.
//
// Raw requests are validated against an embedded CUE schema before
// decoding; the dispatcher translates watch failures into the typed
// error taxonomy rather than free-form strings.
package api
