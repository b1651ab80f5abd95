package queue

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
//   - q/{name}/m                    (queue metadata: lastSeq)
//   - q/{name}/e/{seq_be8}          (entries)
//   - q/{name}/g/{group}/c          (durable group cursor: last-delivered seq)
//   - q/{name}/g/{group}/p/{seq_be8} (pending entry: lease expiry, attempts, consumer)

var (
	queuePrefix  = []byte("q/")
	metaSuffix   = []byte("/m")
	entrySeg     = []byte("/e/")
	groupSeg     = []byte("/g/")
	cursorSuffix = []byte("/c")
	pendingSeg   = []byte("/p/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the queue metadata key.
func KeyMeta(name string) []byte {
	k := make([]byte, 0, len(name)+8)
	k = append(k, queuePrefix...)
	k = append(k, name...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds the entry key with a big-endian sequence for proper
// ordering.
func KeyEntry(name string, seq uint64) []byte {
	k := make([]byte, 0, len(name)+24)
	k = append(k, queuePrefix...)
	k = append(k, name...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// KeyEntryPrefix returns the range prefix covering all entries of a queue.
func KeyEntryPrefix(name string) []byte {
	k := make([]byte, 0, len(name)+8)
	k = append(k, queuePrefix...)
	k = append(k, name...)
	k = append(k, entrySeg...)
	return k
}

// KeyCursor builds the durable cursor key for a group.
func KeyCursor(name, group string) []byte {
	k := make([]byte, 0, len(name)+len(group)+12)
	k = append(k, queuePrefix...)
	k = append(k, name...)
	k = append(k, groupSeg...)
	k = append(k, group...)
	k = append(k, cursorSuffix...)
	return k
}

// KeyPending builds the pending-entry key for a group and sequence.
func KeyPending(name, group string, seq uint64) []byte {
	k := make([]byte, 0, len(name)+len(group)+28)
	k = append(k, queuePrefix...)
	k = append(k, name...)
	k = append(k, groupSeg...)
	k = append(k, group...)
	k = append(k, pendingSeg...)
	k = appendBE8(k, seq)
	return k
}

// KeyPendingPrefix returns the range prefix covering a group's pending
// entries.
func KeyPendingPrefix(name, group string) []byte {
	k := make([]byte, 0, len(name)+len(group)+12)
	k = append(k, queuePrefix...)
	k = append(k, name...)
	k = append(k, groupSeg...)
	k = append(k, group...)
	k = append(k, pendingSeg...)
	return k
}

func upperBound(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), 0xFF)
}
