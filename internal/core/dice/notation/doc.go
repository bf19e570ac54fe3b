// Package notation compiles dice notation such as "3d6+2d20k1" into typed
// segments and resolves them into a total with an auditable breakdown.
//
// # Pipeline
//
// Parse turns one expression into an ordered []Segment. Literals and
// operators are born resolved; dice start pending a roll. Engine.RollSegments
// then loops over resolution passes: every die pending a roll is sent to the
// Roller concurrently, the values are written back by index, each rolled die
// is evaluated (clamp, then selection) and finally the resolved sequence is
// collected into a Result.
//
// # Status
//
// A Die moves strictly forward through PendingRoll, PendingEvaluation and
// Resolved. Segment order is fixed at parse time; evaluation may only insert
// derived dice (rerolls, explosions) directly after their source.
//
// # Groups
//
// ParseGroups splits input on whitespace followed by a digit, so "3d6 5d20"
// is two independent expressions that resolve to two results.
package notation
