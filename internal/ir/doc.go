// Package ir provides the literal value types used by filter predicates and
// metric arguments, plus the canonical JSON encoding used for hashing and
// golden snapshots.
//
// All other internal packages import ir; ir imports nothing internal. This
// keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO binary floats - decimals are exact (apd) and integers are int64
//   - NO null literal - NULL tests are operators, not values
//   - Canonical encoding sorts keys by UTF-16 code units (RFC 8785)
package ir
