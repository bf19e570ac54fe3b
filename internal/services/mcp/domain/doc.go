// Package domain maps MCP tool calls onto dice operations.
//
// Handlers talk to a Backend, so the same tools run against an in-process
// dice service or a remote one reached over gRPC.
package domain
