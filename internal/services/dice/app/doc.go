// Package server hosts the dice gRPC API, its health service and the
// optional websocket roll feed.
package server
