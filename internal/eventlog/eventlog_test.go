package eventlog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simple(v float64) *float64 { return &v }

func TestMaskedCRC(t *testing.T) {
	// Masked crc32c of the empty string as written by TensorFlow's record writer.
	assert.Equal(t, uint32(0xa282ead8), maskedCRC(nil))
}

func TestEventRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name:  "file version",
			event: Event{WallTime: ts, FileVersion: FileVersion},
		},
		{
			name: "simple value",
			event: Event{WallTime: ts, Step: 4, Summary: []SummaryValue{
				{Tag: "epoch_accuracy", SimpleValue: simple(0.75)},
			}},
		},
		{
			name: "plugin data with tensor",
			event: Event{WallTime: ts, Summary: []SummaryValue{
				{Tag: "_hparams_/experiment", PluginName: "hparams", PluginContent: []byte{0x12, 0x00}, Tensor: NullTensor()},
			}},
		},
		{
			name: "double tensor",
			event: Event{WallTime: ts, Step: 1, Summary: []SummaryValue{
				{Tag: "epoch_loss", PluginName: "scalars", Tensor: &Tensor{DType: DTDouble, DoubleVal: []float64{0.125}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unmarshal(tt.event.Marshal())
			require.NoError(t, err)

			assert.WithinDuration(t, tt.event.WallTime, got.WallTime, time.Microsecond)
			got.WallTime = tt.event.WallTime
			assert.Equal(t, tt.event, got)
		})
	}
}

func TestTensorScalar(t *testing.T) {
	v, ok := (&Tensor{DType: DTFloat, FloatVal: []float32{0.5}}).Scalar()
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	v, ok = (&Tensor{DType: DTFloat, Content: []byte{0, 0, 0x80, 0x3f}}).Scalar()
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = (&Tensor{DType: DTDouble}).Scalar()
	assert.False(t, ok)
}

func TestWriterAndReadDir(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, w.Write(Event{WallTime: time.Now(), Step: 0, Summary: []SummaryValue{{Tag: "a", SimpleValue: simple(1)}}}))
	require.NoError(t, w.Write(Event{WallTime: time.Now(), Step: 1, Summary: []SummaryValue{{Tag: "a", SimpleValue: simple(2)}}}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Error(t, w.Write(Event{}))

	w2, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, w2.Write(Event{WallTime: time.Now(), Step: 2, Summary: []SummaryValue{{Tag: "a", SimpleValue: simple(3)}}}))
	require.NoError(t, w2.Close())

	files, err := Files(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, w.Path(), files[0])

	raw, err := ReadFile(files[0])
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, FileVersion, raw[0].FileVersion)

	events, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, int64(i), e.Step)
		assert.Equal(t, float64(i+1), *e.Summary[0].SimpleValue)
	}
}

func TestReadDirOrdersByCreation(t *testing.T) {
	dir := t.TempDir()
	base := time.Unix(1700000000, 0)

	writeFile := func(name string, created time.Time, step int64) {
		var buf bytes.Buffer
		version := Event{WallTime: created, FileVersion: FileVersion}
		require.NoError(t, writeRecord(&buf, version.Marshal()))
		e := Event{WallTime: created, Step: step, Summary: []SummaryValue{{Tag: "a", SimpleValue: simple(1)}}}
		require.NoError(t, writeRecord(&buf, e.Marshal()))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
	}
	// Same second, the later process has the lower pid.
	writeFile(FilePrefix+"1700000000.host.900.000000.v2", base.Add(100*time.Millisecond), 0)
	writeFile(FilePrefix+"1700000000.host.100.000000.v2", base.Add(700*time.Millisecond), 1)

	events, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(0), events[0].Step)
	assert.Equal(t, int64(1), events[1].Step)
}

func TestReadToleratesTruncatedTail(t *testing.T) {
	var buf bytes.Buffer
	first := Event{Step: 1, Summary: []SummaryValue{{Tag: "a", SimpleValue: simple(1)}}}
	require.NoError(t, writeRecord(&buf, first.Marshal()))
	second := Event{Step: 2, Summary: []SummaryValue{{Tag: "a", SimpleValue: simple(2)}}}
	require.NoError(t, writeRecord(&buf, second.Marshal()))

	data := buf.Bytes()
	events, err := Read(bytes.NewReader(data[:len(data)-3]))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].Step)
}

func TestReadDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	e := Event{Step: 1, Summary: []SummaryValue{{Tag: "a", SimpleValue: simple(1)}}}
	require.NoError(t, writeRecord(&buf, e.Marshal()))

	data := buf.Bytes()
	data[headerSize] ^= 0xff

	_, err := Read(bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestReadRejectsOversizedRecord(t *testing.T) {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:8], 1<<40)
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))

	_, err := Read(bytes.NewReader(header[:]))
	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.ErrorContains(t, err, "exceeds")
}

func TestFilesIgnoresOtherEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, FilePrefix+"dir"), 0755))

	files, err := Files(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = Files(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
