package jade

import (
	"fmt"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
	"github.com/wizardsardine/bhwi/common"
)

type sequentialCounter struct {
	n int
}

func (c *sequentialCounter) Next() string {
	c.n++
	return fmt.Sprintf("%d", c.n)
}

func TestGetMasterFingerprintHappyPath(t *testing.T) {
	i := New(common.Bitcoin, &sequentialCounter{})

	transmit, err := i.Start(common.GetMasterFingerprint{})
	require.NoError(t, err)
	require.Equal(t, common.Device{}, transmit.Recipient)

	var req rpcRequest
	require.NoError(t, cbor.Unmarshal(transmit.Payload, &req))
	require.Equal(t, "get_xpub", req.Method)
	require.Equal(t, "1", req.ID)

	const vector1MasterXpub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"
	result, err := cbor.Marshal(vector1MasterXpub)
	require.NoError(t, err)
	reply, err := cbor.Marshal(rpcResponse{ID: "1", Result: result})
	require.NoError(t, err)

	next, err := i.Exchange(reply)
	require.NoError(t, err)
	require.Nil(t, next)

	resp, err := i.End()
	require.NoError(t, err)
	mfp, ok := resp.(common.MasterFingerprint)
	require.True(t, ok)
	require.Equal(t, "3442193e", mfp.Fingerprint.String())
}

func TestGetXpub(t *testing.T) {
	i := New(common.Testnet, &sequentialCounter{})
	path, err := common.ParseDerivationPath("m/84'/1'/0'")
	require.NoError(t, err)

	transmit, err := i.Start(common.GetXpub{Path: path})
	require.NoError(t, err)

	var req rpcRequest
	require.NoError(t, cbor.Unmarshal(transmit.Payload, &req))
	require.Equal(t, "get_xpub", req.Method)

	var params getXpubParams
	paramsBytes, err := cbor.Marshal(req.Params)
	require.NoError(t, err)
	require.NoError(t, cbor.Unmarshal(paramsBytes, &params))
	require.Equal(t, "testnet", params.Network)

	xpubStr := "tpub6C...placeholder"
	result, err := cbor.Marshal(xpubStr)
	require.NoError(t, err)
	reply, err := cbor.Marshal(rpcResponse{ID: req.ID, Result: result})
	require.NoError(t, err)

	_, err = i.Exchange(reply)
	require.NoError(t, err)

	resp, err := i.End()
	require.NoError(t, err)
	require.Equal(t, common.Xpub{Xpub: xpubStr}, resp)
}

func TestRpcErrorResponse(t *testing.T) {
	i := New(common.Bitcoin, &sequentialCounter{})
	_, err := i.Start(common.GetMasterFingerprint{})
	require.NoError(t, err)

	reply, err := cbor.Marshal(rpcResponse{ID: "1", Error: &rpcError{Code: -32000, Message: "denied"}})
	require.NoError(t, err)

	_, err = i.Exchange(reply)
	require.Error(t, err)
	var domainErr *common.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, common.ErrRpc, domainErr.Kind)
	require.Equal(t, -32000, domainErr.Code)
}

func TestAuthHandshakeSuccess(t *testing.T) {
	i := New(common.Testnet, &sequentialCounter{})

	transmit, err := i.Start(common.Unlock{Network: common.Testnet})
	require.NoError(t, err)

	var authReq rpcRequest
	require.NoError(t, cbor.Unmarshal(transmit.Payload, &authReq))
	require.Equal(t, "auth_user", authReq.Method)

	pinServerData := []byte(`{"some":"blob"}`)
	httpResult, err := cbor.Marshal(httpRequestResult{
		HTTPRequest: &httpRequestEnvelope{
			Params: httpRequestParams{
				Urls: cbor.RawMessage(mustCborMarshal(t, []string{"https://p"})),
				Data: pinServerData,
			},
		},
	})
	require.NoError(t, err)
	authReply, err := cbor.Marshal(rpcResponse{ID: authReq.ID, Result: httpResult})
	require.NoError(t, err)

	next, err := i.Exchange(authReply)
	require.NoError(t, err)
	require.NotNil(t, next)
	pinServer, ok := next.Recipient.(common.PinServer)
	require.True(t, ok)
	require.Equal(t, "https://p", pinServer.URL)
	require.Equal(t, pinServerData, next.Payload)

	pinServerHTTPReply := []byte(`{"pin":"1234"}`)
	next, err = i.Exchange(pinServerHTTPReply)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, common.Device{}, next.Recipient)

	var pinReq rpcRequest
	require.NoError(t, cbor.Unmarshal(next.Payload, &pinReq))
	require.Equal(t, "pin", pinReq.Method)

	finalResult, err := cbor.Marshal(true)
	require.NoError(t, err)
	finalReply, err := cbor.Marshal(rpcResponse{ID: pinReq.ID, Result: finalResult})
	require.NoError(t, err)

	next, err = i.Exchange(finalReply)
	require.NoError(t, err)
	require.Nil(t, next)

	resp, err := i.End()
	require.NoError(t, err)
	require.Equal(t, common.TaskDone{}, resp)
}

func TestAuthHandshakeRefused(t *testing.T) {
	i := New(common.Bitcoin, &sequentialCounter{})

	transmit, err := i.Start(common.Unlock{Network: common.Bitcoin})
	require.NoError(t, err)
	var authReq rpcRequest
	require.NoError(t, cbor.Unmarshal(transmit.Payload, &authReq))

	httpResult, err := cbor.Marshal(httpRequestResult{
		HTTPRequest: &httpRequestEnvelope{
			Params: httpRequestParams{
				Urls: cbor.RawMessage(mustCborMarshal(t, struct {
					URL string `cbor:"url"`
				}{URL: "https://p"})),
				Data: []byte("x"),
			},
		},
	})
	require.NoError(t, err)
	authReply, err := cbor.Marshal(rpcResponse{ID: authReq.ID, Result: httpResult})
	require.NoError(t, err)

	next, err := i.Exchange(authReply)
	require.NoError(t, err)
	require.Equal(t, "https://p", next.Recipient.(common.PinServer).URL)

	next, err = i.Exchange([]byte(`{"pin":"0000"}`))
	require.NoError(t, err)

	var pinReq rpcRequest
	require.NoError(t, cbor.Unmarshal(next.Payload, &pinReq))
	finalResult, err := cbor.Marshal(false)
	require.NoError(t, err)
	finalReply, err := cbor.Marshal(rpcResponse{ID: pinReq.ID, Result: finalResult})
	require.NoError(t, err)

	_, err = i.Exchange(finalReply)
	require.Error(t, err)
	var domainErr *common.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, common.ErrAuthenticationRefused, domainErr.Kind)
}

func mustCborMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := cbor.Marshal(v)
	require.NoError(t, err)
	return b
}
