package queue

import (
	"encoding/binary"
	"hash/crc32"
)

// Entry record encoding: varint headerLen | header | payload | crc32c(header|payload).
// The header currently carries the publish timestamp (8 bytes, ms).

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeEntry serializes a header and payload with a trailing checksum.
func EncodeEntry(header, payload []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

// Decoded holds the parts of a decoded entry record.
type Decoded struct {
	Header  []byte
	Payload []byte
}

// DecodeEntry parses and checksum-verifies an encoded entry record.
func DecodeEntry(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if int(n)+int(hlen)+4 > len(b) {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{Header: append([]byte(nil), header...), Payload: append([]byte(nil), payload...)}, true
}

func timestampHeader(nowMs int64) []byte {
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], uint64(nowMs))
	return h[:]
}

// HeaderTimestampMs extracts the publish timestamp from an entry header.
func HeaderTimestampMs(header []byte) int64 {
	if len(header) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(header[:8]))
}
