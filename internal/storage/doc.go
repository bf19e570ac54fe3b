// Package storage defines the persistence contract for roll history.
//
// Every resolved request is stored as one RollRecord holding one
// GroupRecord per independent expression. Records carry a store-assigned
// sequence used for stable, opaque-token pagination.
//
// # Error Types
//
//   - ErrNotFound: a requested roll does not exist.
//   - ErrInvalidPageToken: a page token is malformed or was issued for a
//     different filter or ordering.
package storage
