// Package chat implements the line relay core: the client registry, the
// broadcaster that fans a message out to every other client, the per-connection
// handler state machine and the TCP accept loop that feeds it.
//
// Connections from any transport are adapted into a Stream and share a single
// Registry, so a TCP client and a WebSocket client see each other's messages.
package chat
