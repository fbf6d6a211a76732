package coldcard

import (
	"encoding/binary"
	"fmt"

	"github.com/wizardsardine/bhwi/common"
)

// buildStartEncryption builds the "ncry" handshake request carrying our
// ephemeral public key.
func buildStartEncryption(version uint32, pubKey [64]byte) []byte {
	data := make([]byte, 0, 4+4+64)
	data = append(data, "ncry"...)
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], version)
	data = append(data, v[:]...)
	data = append(data, pubKey[:]...)
	return data
}

// buildGetXpub builds the "xpubm[/path]" request. An empty path asks for
// the master key.
func buildGetXpub(path common.DerivationPath) []byte {
	if len(path) == 0 {
		return []byte("xpubm")
	}
	return []byte(fmt.Sprintf("xpubm/%s", strippedPath(path)))
}

// strippedPath renders path without the leading "m/", matching the
// original crate's bare bip32::DerivationPath Display (e.g. "48'/1'/0'/2'").
func strippedPath(path common.DerivationPath) string {
	s := path.String()
	if len(s) >= 2 && s[:2] == "m/" {
		return s[2:]
	}
	return s
}

// split safely splits bytes at mid, erroring if bytes is shorter.
func split(data []byte, mid int) ([]byte, []byte, error) {
	if len(data) < mid {
		return nil, nil, fmt.Errorf("coldcard: expected at least %d bytes, got %d", mid, len(data))
	}
	return data[:mid], data[mid:], nil
}

func decodeU32LE(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("coldcard: expected 4 bytes for u32, got %d", len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

// parseXpubResponse decodes an "asci"-tagged response carrying a
// serialized extended public key string.
func parseXpubResponse(res []byte) (string, error) {
	cmd, data, err := split(res, 4)
	if err != nil {
		return "", err
	}
	if string(cmd) != "asci" {
		return "", fmt.Errorf("coldcard: expected asci response, got %q", cmd)
	}
	return string(data), nil
}

// myPubResponse is the decoded "mypb" handshake reply: the device's
// ephemeral public key plus its own xpub fingerprint and, optionally, its
// master xpub.
type myPubResponse struct {
	encryptionKey [64]byte
	xpubFingerprint common.Fingerprint
	xpub            string
	hasXpub         bool
}

// parseMyPubResponse decodes a "mypb"-tagged handshake response.
func parseMyPubResponse(res []byte) (myPubResponse, error) {
	cmd, data, err := split(res, 4)
	if err != nil {
		return myPubResponse{}, err
	}
	if string(cmd) != "mypb" {
		return myPubResponse{}, fmt.Errorf("coldcard: expected mypb response, got %q", cmd)
	}

	keyBytes, data, err := split(data, 64)
	if err != nil {
		return myPubResponse{}, err
	}
	var out myPubResponse
	copy(out.encryptionKey[:], keyBytes)

	fpBytes, data, err := split(data, 4)
	if err != nil {
		return myPubResponse{}, err
	}
	copy(out.xpubFingerprint[:], fpBytes)

	lenBytes, data, err := split(data, 4)
	if err != nil {
		return myPubResponse{}, err
	}
	xpubLen, err := decodeU32LE(lenBytes)
	if err != nil {
		return myPubResponse{}, err
	}
	if xpubLen > 0 {
		xpubBytes, _, err := split(data, int(xpubLen))
		if err != nil {
			return myPubResponse{}, err
		}
		out.xpub = string(xpubBytes)
		out.hasXpub = true
	}
	return out, nil
}
