// Package testutil provides testing utilities for diskmap.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source for keys and payloads and a simple
// volume-backed sub-map to plug into hashdir.Map.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.Keys(100, 12)   // 100 distinct 12-character keys
//	blob := rng.Bytes(4096)
//
// # Sub-maps
//
//	m := hashdir.NewMap(s, dir, hashdir.StringHasher, testutil.SortedSubMapFactory[string, int]())
package testutil
