// Package timeouts defines the durations shared by dicetray servers and
// clients.
package timeouts

import "time"

// GRPCDial caps the wait for a dice server to report SERVING.
const GRPCDial = 2 * time.Second

// ToolCall caps a single backend call made on behalf of an MCP tool.
const ToolCall = 5 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server drains in-flight requests.
const Shutdown = 5 * time.Second
