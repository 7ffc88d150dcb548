package common

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Key is a Morton key. Keys are up to 128 bits wide (4 dimensions of 31
// bits need 124), so they do not fit a machine word.
type Key = uint256.Int

// KeyOf returns v as a Key.
func KeyOf(v uint64) Key {
	var k Key
	k.SetUint64(v)
	return k
}

// Record is a stored item addressed by its Morton key.
type Record struct {
	Key   Key
	Value []byte
}

// String 方便调试打印
func (r *Record) String() string {
	return fmt.Sprintf("Record{Key: %s, ValLen: %d}", r.Key.Dec(), len(r.Value))
}

// KeyBytes is the big-endian form of a key used by SQL backends. Keys
// never exceed 128 bits, so 16 bytes keep the byte order and the key order
// identical.
func KeyBytes(k Key) []byte {
	b := k.Bytes32()
	return b[16:]
}

// KeyFromBytes is the inverse of KeyBytes.
func KeyFromBytes(b []byte) Key {
	var k Key
	k.SetBytes(b)
	return k
}
