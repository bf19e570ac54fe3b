// Package dice exposes the dice service over gRPC.
//
// Messages are google.protobuf.Struct values so any gRPC client can call the
// service without generated stubs. Field names follow the JSON wire names
// below.
//
//	Roll      {notation, seed?, d100_mode?, dry_run?, hints?} -> roll
//	GetRoll   {id} -> roll
//	ListRolls {page_size?, page_token?, filter?, descending?} -> {rolls, next_page_token}
//
// A roll is {id, seq, notation, seed, seed_source, d100_mode, total,
// rolled_at, groups: [{notation, total, breakdown}]}.
package dice
