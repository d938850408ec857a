// Package ir provides the foundational value types for datagen.
//
// This package contains fields, values, data bags and their canonical
// serialization. All other internal packages import ir; ir imports nothing
// internal. This keeps ir the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - NO float types anywhere - numbers are exact apd decimals
//   - DataBags are immutable; Merge and With return new bags
//   - Canonical JSON (RFC 8785) is the only serialization used for identity
package ir
