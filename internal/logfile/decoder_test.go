package logfile

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKeySource struct {
	key   []byte
	err   error
	calls int
}

func (s *staticKeySource) FetchKey(_ context.Context, _ uint8, _ [16]byte) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.key, nil
}

func buildPlainLog(t *testing.T) []byte {
	t.Helper()

	enc := NewEncoder(7)
	enc.SetDrone("Mavic 3", "1581F5FJC2")
	enc.Home(-33.8688, 151.2093)
	enc.Position(-33.8688, 151.2093, 0, 12)
	enc.Battery(100, 15.4, 2.1, 24)
	enc.FlightMode("GPS_ATTI")
	enc.Tick(1_700_000_000_000)
	enc.Position(-33.8690, 151.2095, 10.5, 22.5)
	enc.Velocity(5.2, 3.1, 4.0, -1.0)
	enc.Tick(1_700_000_000_500)
	enc.Signal(5, 14, 98)
	enc.Tick(1_700_000_001_000)

	data, err := enc.Bytes()
	require.NoError(t, err)
	return data
}

func TestDecode_PlainContainer(t *testing.T) {
	dec := NewDecoder(nil, nil)

	log, err := dec.Decode(context.Background(), buildPlainLog(t))
	require.NoError(t, err)

	assert.Equal(t, "Mavic 3", log.Metadata.DroneModel)
	assert.Equal(t, "1581F5FJC2", log.Metadata.DroneSerial)
	assert.Zero(t, log.Warnings)
	require.Len(t, log.Points, 3)

	// Home record feeds metadata, not the sample stream.
	require.NotNil(t, log.Metadata.HomeLatitude)
	assert.InDelta(t, -33.8688, *log.Metadata.HomeLatitude, 1e-9)

	require.NotNil(t, log.Metadata.StartTime)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000).UTC(), *log.Metadata.StartTime)
	require.NotNil(t, log.Metadata.EndTime)
	assert.Equal(t, time.UnixMilli(1_700_000_001_000).UTC(), *log.Metadata.EndTime)

	first := log.Points[0]
	require.NotNil(t, first.BatteryPercent)
	assert.Equal(t, int64(100), *first.BatteryPercent)
	require.NotNil(t, first.FlightMode)
	assert.Equal(t, "GPS_ATTI", *first.FlightMode)
	assert.Nil(t, first.Speed)

	second := log.Points[1]
	require.NotNil(t, second.Speed)
	assert.InDelta(t, 5.2, *second.Speed, 1e-5)
	require.NotNil(t, second.Altitude)
	assert.InDelta(t, 10.5, *second.Altitude, 1e-5)

	// Sparse carry-forward: battery was only sent before the first tick
	// but is still present on the last sample.
	third := log.Points[2]
	require.NotNil(t, third.BatteryPercent)
	assert.Equal(t, int64(100), *third.BatteryPercent)
	require.NotNil(t, third.Satellites)
	assert.Equal(t, int64(14), *third.Satellites)
}

func TestDecode_PointsAreNotAliased(t *testing.T) {
	enc := NewEncoder(7)
	enc.Battery(90, 15.0, 1.0, 20)
	enc.Tick(1000)
	enc.Battery(80, 14.8, 1.2, 21)
	enc.Tick(2000)

	data, err := enc.Bytes()
	require.NoError(t, err)

	log, err := NewDecoder(nil, nil).Decode(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, log.Points, 2)

	// The second battery update must not leak into the flushed first point.
	assert.Equal(t, int64(90), *log.Points[0].BatteryPercent)
	assert.Equal(t, int64(80), *log.Points[1].BatteryPercent)
}

func TestDecode_UnknownTagSkipped(t *testing.T) {
	enc := NewEncoder(7)
	enc.Position(1, 2, 3, 4)
	enc.Tick(1000)
	enc.Record(0x7F, []byte{0xDE, 0xAD, 0xBE, 0xEF}) // future firmware record
	enc.Position(1.1, 2.1, 3.1, 4.1)
	enc.Tick(2000)

	data, err := enc.Bytes()
	require.NoError(t, err)

	log, err := NewDecoder(nil, nil).Decode(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, log.Warnings)
	require.Len(t, log.Points, 2)
	assert.InDelta(t, 1.1, *log.Points[1].Latitude, 1e-9)
}

func TestDecode_WrongSizePayloadSkipped(t *testing.T) {
	enc := NewEncoder(7)
	enc.Record(tagSignal, []byte{5}) // too short for a signal record
	enc.Tick(1000)

	data, err := enc.Bytes()
	require.NoError(t, err)

	log, err := NewDecoder(nil, nil).Decode(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, log.Warnings)
	require.Len(t, log.Points, 1)
	assert.Nil(t, log.Points[0].GPSSignal)
}

func TestDecode_CorruptTailKeepsHead(t *testing.T) {
	enc := NewEncoder(7)
	enc.Position(1, 2, 3, 4)
	enc.Tick(1000)
	enc.Tick(2000)

	data, err := enc.Bytes()
	require.NoError(t, err)

	// Append a record whose declared length runs past the end of the
	// stream, then fix up the header's payload length.
	data = append(data, tagPosition, 200, 0x01, 0x02)
	dataLen := len(data) - headerSize
	data[8] = byte(dataLen)
	data[9] = byte(dataLen >> 8)

	log, err := NewDecoder(nil, nil).Decode(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, log.Warnings)
	assert.Len(t, log.Points, 2)
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	enc := NewEncoder(7)
	enc.Tick(1000)
	data, err := enc.Bytes()
	require.NoError(t, err)

	data[4] = MaxVersion + 1

	_, err = NewDecoder(nil, nil).Decode(context.Background(), data)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_BadMagic(t *testing.T) {
	data := buildPlainLog(t)
	data[0] = 'X'

	_, err := NewDecoder(nil, nil).Decode(context.Background(), data)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_OverflowingPayloadLength(t *testing.T) {
	data := buildPlainLog(t)
	binary.LittleEndian.PutUint64(data[8:16], math.MaxUint64)

	_, err := NewDecoder(nil, nil).Decode(context.Background(), data)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_TruncatedHeader(t *testing.T) {
	_, err := NewDecoder(nil, nil).Decode(context.Background(), []byte("DJIL"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func buildEncryptedLog(t *testing.T, key []byte) []byte {
	t.Helper()

	enc := NewEncoder(EncryptedVersion)
	enc.SetDrone("Mini 4 Pro", "SN-ENC-01")
	enc.SetKey([16]byte{1, 2, 3, 4}, key)
	enc.Position(51.5074, -0.1278, 30, 45)
	enc.Tick(1_700_000_000_000)

	data, err := enc.Bytes()
	require.NoError(t, err)
	return data
}

func TestDecode_EncryptedContainer(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	source := &staticKeySource{key: key}
	log, err := NewDecoder(source, nil).Decode(context.Background(), buildEncryptedLog(t, key))
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	require.Len(t, log.Points, 1)
	assert.InDelta(t, 51.5074, *log.Points[0].Latitude, 1e-9)
}

func TestDecode_WrongKey(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	wrong := make([]byte, 32)
	copy(wrong, key)
	wrong[0] ^= 0xFF

	_, err = NewDecoder(&staticKeySource{key: wrong}, nil).Decode(context.Background(), buildEncryptedLog(t, key))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecode_KeySourceFailureIsFatal(t *testing.T) {
	wantErr := errors.New("key service unreachable")

	_, err := NewDecoder(&staticKeySource{err: wantErr}, nil).Decode(context.Background(), buildEncryptedLog(t, make([]byte, 32)))
	assert.ErrorIs(t, err, wantErr)
}

func TestDecode_OutOfOrderTicksSorted(t *testing.T) {
	enc := NewEncoder(7)
	enc.Tick(2000)
	enc.Tick(1000)
	enc.Tick(3000)

	data, err := enc.Bytes()
	require.NoError(t, err)

	log, err := NewDecoder(nil, nil).Decode(context.Background(), data)
	require.NoError(t, err)

	require.Len(t, log.Points, 3)
	assert.Equal(t, int64(1000), log.Points[0].TimestampMS)
	assert.Equal(t, int64(2000), log.Points[1].TimestampMS)
	assert.Equal(t, int64(3000), log.Points[2].TimestampMS)
}
