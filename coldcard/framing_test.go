package coldcard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkSingleReport(t *testing.T) {
	payload := []byte("xpubm")
	reports := Chunk(payload, false)
	require.Len(t, reports, 1)
	require.Len(t, reports[0], readReportSize)
	require.Equal(t, byte(len(payload))|flagLastFrame, reports[0][0])
	require.Equal(t, payload, reports[0][1:1+len(payload)])
}

func TestChunkEncryptedFlag(t *testing.T) {
	reports := Chunk([]byte("abc"), true)
	require.Equal(t, byte(3)|flagLastFrame|flagEncrypted, reports[0][0])
}

func TestChunkMultiReport(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 150)
	reports := Chunk(payload, false)
	require.True(t, len(reports) >= 3)
	for _, r := range reports[:len(reports)-1] {
		require.Zero(t, r[0]&flagLastFrame)
	}
	last := reports[len(reports)-1]
	require.NotZero(t, last[0]&flagLastFrame)
}

func TestChunkReassembleRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("xpubm"),
		bytes.Repeat([]byte{0x09}, 63),
		bytes.Repeat([]byte{0x0a}, 64),
		bytes.Repeat([]byte{0x0b}, 300),
	}
	for _, payload := range payloads {
		reports := Chunk(payload, false)
		got, err := Reassemble(reports)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	}
}

func TestReassembleFramQuirk(t *testing.T) {
	// Firmware bug: a "fram..." response is a single report that forgets
	// to set the last-frame bit.
	payload := append([]byte("fram"), []byte("extra-data")...)
	report := make([]byte, readReportSize)
	report[0] = byte(len(payload)) // no flagLastFrame bit set
	copy(report[1:], payload)

	r := NewReassembler()
	done, err := r.Feed(report)
	require.NoError(t, err)
	require.True(t, done, "fram response should be treated as last frame despite missing flag bit")
	require.Equal(t, payload, r.Bytes())
}
