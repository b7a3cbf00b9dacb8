// Package server assembles the GoChat service around the chat core.
//
// The implementation is organized into specialized files for configuration,
// origin checks, the WebSocket adapter, routing, HTTP handlers and process
// wiring, so the chat package stays free of HTTP concerns.
package server
