package schedule

import (
	"encoding/binary"
	"math"
)

/*
Key is the schedule's priority: (score, hash), ordered by score
ascending with ties broken by hash ascending.

The store compares raw bytes, so the order is encoded instead of
registered as a comparator: the score's IEEE-754 bits are munged into
a monotonically increasing big-endian pattern (sign bit flipped for
non-negatives, all bits flipped for negatives), followed by the
big-endian hash. Lexicographic byte order then equals the numeric
order above.

NaN scores have no place in a total order and are rejected.
*/

const (
	// KeySize is the fixed encoded width: 8 bytes score + 8 bytes hash.
	KeySize = 16
	// FreqSize is the stored frequency width (float32).
	FreqSize = 4
	// EntrySize is the full on-disk footprint of one schedule entry.
	EntrySize = KeySize + FreqSize
)

type Key struct {
	// Score is the page's next-due virtual time; smaller is sooner.
	Score float64
	// Hash is the 64-bit page identity from the page database.
	Hash uint64
}

// Encode returns the 16-byte sortable representation of the key.
func (k Key) Encode() ([]byte, error) {
	if math.IsNaN(k.Score) {
		return nil, &ScheduleError{
			Message: "schedule key score is NaN",
			Cause:   ErrCauseNaNScore,
		}
	}
	buf := make([]byte, KeySize)
	binary.BigEndian.PutUint64(buf[0:8], sortableScoreBits(k.Score))
	binary.BigEndian.PutUint64(buf[8:16], k.Hash)
	return buf, nil
}

// DecodeKey parses a 16-byte encoded key. A wrong size means the
// schedule table was corrupted by something outside this package.
func DecodeKey(b []byte) (Key, error) {
	if len(b) != KeySize {
		return Key{}, &ScheduleError{
			Message: "malformed schedule key size",
			Cause:   ErrCauseMalformedKey,
		}
	}
	return Key{
		Score: scoreFromSortableBits(binary.BigEndian.Uint64(b[0:8])),
		Hash:  binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// EncodeFreq returns the 4-byte stored form of a frequency.
func EncodeFreq(freq float32) []byte {
	buf := make([]byte, FreqSize)
	binary.BigEndian.PutUint32(buf, math.Float32bits(freq))
	return buf
}

// DecodeFreq parses a stored frequency value.
func DecodeFreq(b []byte) (float32, error) {
	if len(b) != FreqSize {
		return 0, &ScheduleError{
			Message: "malformed schedule value size",
			Cause:   ErrCauseMalformedKey,
		}
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func sortableScoreBits(score float64) uint64 {
	bits := math.Float64bits(score)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | 1<<63
}

func scoreFromSortableBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits &^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}
