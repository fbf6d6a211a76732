package coldcard

import "fmt"

// writeChunkSize is the payload capacity of a single outbound HID report:
// the 64-byte report minus the leading flag byte (Ledger's reports spend
// a 5-byte header instead).
const writeChunkSize = 63

// readReportSize is the fixed size of an inbound HID report.
const readReportSize = 64

const (
	flagLastFrame = 0x80
	flagEncrypted = 0x40
	flagLengthMask = 0x3f
)

// Chunk splits payload into flag-byte-prefixed 64-byte HID reports. The
// last report's flag byte has the last-frame bit set, and the encrypted
// bit set when encrypted is true.
func Chunk(payload []byte, encrypted bool) [][]byte {
	if len(payload) == 0 {
		flag := byte(flagLastFrame)
		if encrypted {
			flag |= flagEncrypted
		}
		return [][]byte{append([]byte{flag}, make([]byte, writeChunkSize)...)}
	}

	var reports [][]byte
	for start := 0; start < len(payload); start += writeChunkSize {
		end := start + writeChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[start:end]

		report := make([]byte, writeChunkSize+1)
		flag := byte(len(chunk))
		if end == len(payload) {
			flag |= flagLastFrame
			if encrypted {
				flag |= flagEncrypted
			}
		}
		report[0] = flag
		copy(report[1:], chunk)
		reports = append(reports, report)
	}
	return reports
}

// Reassembler accumulates Coldcard HID reports for a single reply,
// applying the `fram` firmware quirk: a reply whose payload begins with
// the ASCII bytes "fram" is treated as the last frame even when the
// last-frame bit in the flag byte was not set, because older firmware
// forgets to set it for that response.
type Reassembler struct {
	data    []byte
	first   bool
	done    bool
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{first: true}
}

// Feed consumes one HID report, returning true once the reply is
// complete.
func (r *Reassembler) Feed(report []byte) (bool, error) {
	if r.done {
		return true, nil
	}
	if len(report) != readReportSize {
		return false, fmt.Errorf("coldcard: short report, got %d bytes, want %d", len(report), readReportSize)
	}

	flag := report[0]
	length := int(flag & flagLengthMask)
	isLast := flag&flagLastFrame != 0
	isFram := r.first && length >= 4 && string(report[1:5]) == "fram"
	isLast = isLast || isFram

	r.data = append(r.data, report[1:1+length]...)
	r.first = false

	if isLast {
		r.done = true
		return true, nil
	}
	return false, nil
}

// Bytes returns the reassembled payload. Only valid once Feed has
// returned true.
func (r *Reassembler) Bytes() []byte { return r.data }

// Reassemble is a convenience wrapper for callers that already have every
// report in hand.
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
	return nil, fmt.Errorf("coldcard: incomplete reply, missing reports")
}
