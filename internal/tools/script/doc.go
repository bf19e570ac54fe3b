// Package script runs Lua scripts that roll batches of dice.
//
// Scripts see a global dice table:
//
//	local r = dice.roll("4d6k3", {seed = 42, dry_run = true})
//	print(r.total, dice.format(r))
//	local groups = dice.parse("3d6+2 1d20")
//
// dice.roll returns a table with id, notation, total, seed, seed_source,
// d100_mode and groups (each with notation, total and breakdown).
package script
