package schedule_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/recrawler/internal/schedule"
)

func TestKey_EncodeDecode_RoundTrip(t *testing.T) {
	keys := []schedule.Key{
		{Score: 0, Hash: 0},
		{Score: 0, Hash: 0xffffffffffffffff},
		{Score: 0.5, Hash: 1},
		{Score: 1.0 / 3.0, Hash: 42},
		{Score: 1e18, Hash: 7},
		{Score: math.MaxFloat64, Hash: 9},
	}
	for _, k := range keys {
		encoded, err := k.Encode()
		require.NoError(t, err)
		require.Len(t, encoded, schedule.KeySize)

		decoded, err := schedule.DecodeKey(encoded)
		require.NoError(t, err)
		assert.Equal(t, k, decoded)
	}
}

func TestKey_Encode_RejectsNaN(t *testing.T) {
	_, err := schedule.Key{Score: math.NaN(), Hash: 1}.Encode()
	require.Error(t, err)

	var serr *schedule.ScheduleError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, schedule.ErrCauseNaNScore, serr.Cause)
}

func TestDecodeKey_RejectsMalformedSize(t *testing.T) {
	for _, size := range []int{0, 1, 8, 15, 17, 32} {
		_, err := schedule.DecodeKey(make([]byte, size))
		require.Error(t, err, "size %d must be rejected", size)

		var serr *schedule.ScheduleError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, schedule.ErrCauseMalformedKey, serr.Cause)
	}
}

// The store compares raw bytes, so the encoded form must order exactly
// like (score ascending, hash ascending).
func TestKey_Encode_ByteOrderMatchesKeyOrder(t *testing.T) {
	ordered := []schedule.Key{
		{Score: 0, Hash: 0},
		{Score: 0, Hash: 1},
		{Score: 0, Hash: 0xffffffffffffffff},
		{Score: 0.25, Hash: 0},
		{Score: 0.5, Hash: 3},
		{Score: 0.5, Hash: 4},
		{Score: 1.0, Hash: 0},
		{Score: 1.5, Hash: 2},
		{Score: 1e9, Hash: 0},
		{Score: 1e9, Hash: 1},
	}
	for i := 1; i < len(ordered); i++ {
		prev, err := ordered[i-1].Encode()
		require.NoError(t, err)
		next, err := ordered[i].Encode()
		require.NoError(t, err)
		assert.Negative(t, bytes.Compare(prev, next),
			"key %v must sort before %v", ordered[i-1], ordered[i])
	}
}

func TestFreq_EncodeDecode_RoundTrip(t *testing.T) {
	for _, f := range []float32{0.001, 0.5, 1, 2, 1e6} {
		decoded, err := schedule.DecodeFreq(schedule.EncodeFreq(f))
		require.NoError(t, err)
		assert.Equal(t, f, decoded)
	}
}

func TestDecodeFreq_RejectsMalformedSize(t *testing.T) {
	_, err := schedule.DecodeFreq([]byte{1, 2, 3})
	require.Error(t, err)
}
