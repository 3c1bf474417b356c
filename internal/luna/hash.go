package luna

import (
	"encoding/binary"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
)

// hashBytes computes the content hash used to place and compare interned
// strings (spec.md section 4.2). blake2b is the pack's chosen hashing
// primitive (mined from the rest of the retrieval pack rather than the
// teacher, which never hashes anything); the first 8 bytes of a 256-bit
// digest give the 64-bit width every object header carries.
func hashBytes(b []byte) uint64 {
	sum := blake2b.Sum256(b)
	return binary.LittleEndian.Uint64(sum[:8])
}

// identitySeq hands out distinct, well-mixed identity hashes for objects
// that have no content to hash (everything except strings). Using a
// counter rather than a pointer address keeps hashing free of `unsafe`.
var identitySeq uint64

const fibHashMultiplier = 0x9E3779B97F4A7C15 // golden-ratio multiplicative hash, spreads small sequential counters

func nextIdentityHash() uint64 {
	n := atomic.AddUint64(&identitySeq, 1)
	return n * fibHashMultiplier
}

// hashValue hashes a Value for use as a Hashmap key (spec.md's Hashmap
// addition, section "Module list" of SPEC_FULL.md). Any value can be a key;
// objects hash by their cached header hash (content hash for strings,
// identity hash for everything else).
func hashValue(v Value) uint64 {
	switch v.kind {
	case KindNone:
		return 0
	case KindUndefined:
		return 1
	case KindBool, KindInt:
		return uint64(v.num) * fibHashMultiplier
	case KindObject:
		if v.obj == nil {
			return 0
		}
		return v.obj.header().hash
	default:
		return 0
	}
}
