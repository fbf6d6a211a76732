package apdu

import (
	"bytes"
	"errors"
	"testing"
)

func TestCommandEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{
			name: "get master fingerprint, no data",
			cmd:  NewCommand(ClaBitcoin, byte(InsGetMasterFingerprint), 0x00, nil),
			want: []byte{0xE1, 0x05, 0x00, 0x01, 0x00},
		},
		{
			name: "with payload",
			cmd:  NewCommand(ClaFramework, byte(InsContinueInterrupted), 0x00, []byte{0x01, 0x02, 0x03}),
			want: []byte{0xF8, 0x01, 0x00, 0x01, 0x03, 0x01, 0x02, 0x03},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Encode(); !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		want    Response
		wantErr error
	}{
		{
			name: "ok with payload",
			raw:  []byte{0xde, 0xad, 0xbe, 0xef, 0x90, 0x00},
			want: Response{Data: []byte{0xde, 0xad, 0xbe, 0xef}, StatusWord: OK},
		},
		{
			name: "interrupted execution, no payload",
			raw:  []byte{0xE0, 0x00},
			want: Response{Data: []byte{}, StatusWord: InterruptedExecution},
		},
		{
			name:    "too short",
			raw:     []byte{0x90},
			wantErr: ErrResponseTooShort,
		},
		{
			name:    "unknown status word",
			raw:     []byte{0x12, 0x34},
			wantErr: ErrUnknownStatusWord,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResponse(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeResponse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeResponse() unexpected error: %v", err)
			}
			if got.StatusWord != tt.want.StatusWord {
				t.Errorf("StatusWord = %v, want %v", got.StatusWord, tt.want.StatusWord)
			}
			if !bytes.Equal(got.Data, tt.want.Data) {
				t.Errorf("Data = %x, want %x", got.Data, tt.want.Data)
			}
		})
	}
}

func TestParseClientCommandCode(t *testing.T) {
	if _, ok := ParseClientCommandCode(0x10); !ok {
		t.Error("expected 0x10 to be recognized as Yield")
	}
	if _, ok := ParseClientCommandCode(0xFF); ok {
		t.Error("expected 0xFF to be unrecognized")
	}
}
