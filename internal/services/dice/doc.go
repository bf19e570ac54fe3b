// Package dice is the application service behind every dicetray surface.
//
// It resolves seeds, runs the notation engine against a seeded roller,
// persists each roll to history and notifies subscribers such as the live
// feed. The gRPC API, MCP tools, Lua scripts and CLI all call into Service.
package dice
