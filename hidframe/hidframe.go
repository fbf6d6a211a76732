// Package hidframe implements Ledger's USB-HID report framing: splitting an
// APDU command into 64-byte channel/tag/seq-framed reports, and
// reassembling a reply back out of them. It is pure byte manipulation; the
// actual HID reads/writes belong to a transport implementation.
package hidframe

import (
	"encoding/binary"
	"fmt"
)

// Channel is the fixed Ledger HID channel identifier used on every report.
const Channel uint16 = 0x0101

// Tag is the fixed Ledger HID report tag.
const Tag byte = 0x05

// ReportSize is the fixed HID report length Ledger devices use.
const ReportSize = 64

const headerSize = 5 // channel(2) + tag(1) + seq(2)

// Chunk splits payload into one or more ReportSize-byte HID reports, each
// prefixed with channel/tag/sequence, the first also carrying a 2-byte
// big-endian length prefix ahead of the payload bytes.
func Chunk(payload []byte) [][]byte {
	framed := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(framed, uint16(len(payload)))
	copy(framed[2:], payload)

	chunkSize := ReportSize - headerSize
	var reports [][]byte
	for seq := 0; ; seq++ {
		start := seq * chunkSize
		if start >= len(framed) && seq > 0 {
			break
		}
		end := start + chunkSize
		if end > len(framed) {
			end = len(framed)
		}

		report := make([]byte, ReportSize)
		binary.BigEndian.PutUint16(report[0:2], Channel)
		report[2] = Tag
		binary.BigEndian.PutUint16(report[3:5], uint16(seq))
		copy(report[headerSize:], framed[start:end])
		reports = append(reports, report)

		if end >= len(framed) {
			break
		}
	}
	return reports
}

// Reassembler accumulates HID reports for a single reply and reports
// whether the reply is complete.
type Reassembler struct {
	expectedLen int
	seq         uint16
	data        []byte
	done        bool
}

// NewReassembler returns an empty Reassembler ready to consume reports
// starting at sequence 0.
func NewReassembler() *Reassembler {
	return &Reassembler{data: make([]byte, 0, 256)}
}

// Feed consumes one HID report. It returns true once the full reply has
// been accumulated; call Bytes to retrieve it.
func (r *Reassembler) Feed(report []byte) (bool, error) {
	if r.done {
		return true, nil
	}
	if (r.seq == 0 && len(report) < 7) || len(report) < 5 {
		return false, fmt.Errorf("hidframe: incomplete header")
	}

	channel := binary.BigEndian.Uint16(report[0:2])
	tag := report[2]
	seq := binary.BigEndian.Uint16(report[3:5])

	if channel != Channel {
		return false, fmt.Errorf("hidframe: invalid channel %04x", channel)
	}
	if tag != Tag {
		return false, fmt.Errorf("hidframe: invalid tag %02x", tag)
	}
	if seq != r.seq {
		return false, fmt.Errorf("hidframe: invalid sequence index %d, expected %d", seq, r.seq)
	}

	pos := headerSize
	if seq == 0 {
		r.expectedLen = int(binary.BigEndian.Uint16(report[5:7]))
		pos = 7
	}

	available := len(report) - pos
	missing := r.expectedLen - len(r.data)
	n := available
	if missing < n {
		n = missing
	}
	if n > 0 {
		r.data = append(r.data, report[pos:pos+n]...)
	}

	if len(r.data) >= r.expectedLen {
		r.done = true
		return true, nil
	}
	r.seq++
	return false, nil
}

// Bytes returns the reassembled payload. Only valid once Feed has
// returned true.
func (r *Reassembler) Bytes() []byte {
	return r.data
}

// Reassemble is a convenience wrapper around Reassembler for callers that
// already have every report in hand.
func Reassemble(reports [][]byte) ([]byte, error) {
	r := NewReassembler()
	for _, report := range reports {
		done, err := r.Feed(report)
		if err != nil {
			return nil, err
		}
		if done {
			return r.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("hidframe: incomplete reply, missing reports")
}
