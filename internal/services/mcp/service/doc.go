// Package service runs the dice MCP tools over stdio or streamable HTTP.
//
// Tools are served from a local sqlite-backed dice service unless a gRPC
// address is configured, in which case every call goes to that server.
package service
