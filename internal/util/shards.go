package util

import "runtime"

// MaxShards caps the automatic and requested shard counts.
const MaxShards = 256

// ShardCount normalizes a requested shard count: n <= 0 picks
// 2*GOMAXPROCS, and the result is rounded up to a power of two within
// [1..MaxShards] so that ShardIndex can mask instead of divide.
func ShardCount(n int) int {
	if n <= 0 {
		n = 2 * runtime.GOMAXPROCS(0)
	}
	if n > MaxShards {
		n = MaxShards
	}
	return int(NextPow2(uint64(n)))
}

// ShardIndex maps a hash onto one of shards (a power of two) buckets.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(hash & uint64(shards-1))
}

// NextPow2 returns the smallest power of two >= x (1 for x == 0).
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}
