package coldcard

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wizardsardine/bhwi/common"
)

func TestBuildGetXpubMaster(t *testing.T) {
	require.Equal(t, []byte("xpubm"), buildGetXpub(nil))
}

func TestBuildGetXpubWithPath(t *testing.T) {
	path, err := common.ParseDerivationPath("m/48'/1'/0'/2'")
	require.NoError(t, err)
	require.Equal(t, []byte("xpubm/48'/1'/0'/2'"), buildGetXpub(path))
}

func TestBuildStartEncryption(t *testing.T) {
	var pub [64]byte
	for i := range pub {
		pub[i] = byte(i)
	}
	req := buildStartEncryption(1, pub)
	require.Equal(t, []byte("ncry"), req[:4])
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(req[4:8]))
	require.Equal(t, pub[:], req[8:])
}

func TestParseXpubResponse(t *testing.T) {
	xpubStr := "xpub6C...placeholder"
	res := append([]byte("asci"), []byte(xpubStr)...)
	got, err := parseXpubResponse(res)
	require.NoError(t, err)
	require.Equal(t, xpubStr, got)
}

func TestParseXpubResponseWrongTag(t *testing.T) {
	_, err := parseXpubResponse([]byte("nope12345"))
	require.Error(t, err)
}

func TestParseMyPubResponse(t *testing.T) {
	var key [64]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	xpubStr := "xpub6D...placeholder"

	res := append([]byte("mypb"), key[:]...)
	res = append(res, 0xaa, 0xbb, 0xcc, 0xdd)
	lenBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBytes, uint32(len(xpubStr)))
	res = append(res, lenBytes...)
	res = append(res, []byte(xpubStr)...)

	got, err := parseMyPubResponse(res)
	require.NoError(t, err)
	require.Equal(t, key, got.encryptionKey)
	require.Equal(t, common.Fingerprint{0xaa, 0xbb, 0xcc, 0xdd}, got.xpubFingerprint)
	require.True(t, got.hasXpub)
	require.Equal(t, xpubStr, got.xpub)
}

func TestParseMyPubResponseNoXpub(t *testing.T) {
	var key [64]byte
	res := append([]byte("mypb"), key[:]...)
	res = append(res, 0x00, 0x00, 0x00, 0x00)
	res = append(res, 0x00, 0x00, 0x00, 0x00)

	got, err := parseMyPubResponse(res)
	require.NoError(t, err)
	require.False(t, got.hasXpub)
}
