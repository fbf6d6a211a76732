// Package jade implements the Interpreter for Blockstream Jade: a
// CBOR-RPC protocol with an out-of-band HTTP PIN-server leg woven into
// the Unlock handshake.
package jade

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	"github.com/wizardsardine/bhwi/common"
)

// Counter produces the stringified, monotonically increasing request IDs
// the Jade RPC protocol requires. The original implementation keeps this
// counter process-global; bhwi instead injects it so callers that want a
// single shared counter across devices/goroutines can provide one, and
// tests can provide a deterministic one.
type Counter interface {
	Next() string
}

// processCounter is an atomic, process-wide monotonic counter starting
// at 1, mirroring the original crate's static counter.
type processCounter struct {
	n int64
}

func (c *processCounter) Next() string {
	return fmt.Sprintf("%d", atomic.AddInt64(&c.n, 1))
}

// DefaultCounter is the process-global counter used when no Counter is
// supplied explicitly. Every Interpreter sharing DefaultCounter draws
// from the same sequence.
var DefaultCounter Counter = &processCounter{}

type stateKind int

const (
	stateNew stateKind = iota
	stateAuthStarted
	stateWaitingPinServer
	stateWaitingFinalHandshake
	stateXpubStarted
	stateFinished
)

type pendingCommand int

const (
	cmdNone pendingCommand = iota
	cmdUnlock
	cmdGetMasterFingerprint
	cmdGetXpub
)

// Interpreter is the Jade Interpreter. Network is set at construction
// time (an Unlock command replaces it with its own network). Jade's
// get_xpub RPC takes a network parameter on every call, not only during
// authentication, so the device façade passes the network set with
// SetNetwork to every Interpreter it creates.
type Interpreter struct {
	network common.Network
	counter Counter

	kind     stateKind
	pending  pendingCommand
	pinURL   string
	response common.Response
}

// New returns a fresh Jade Interpreter for network, drawing request IDs
// from counter.
func New(network common.Network, counter Counter) *Interpreter {
	if counter == nil {
		counter = DefaultCounter
	}
	return &Interpreter{network: network, counter: counter, kind: stateNew}
}

func networkString(n common.Network) string {
	if n == common.Bitcoin {
		return "mainnet"
	}
	return "testnet"
}

type rpcRequest struct {
	ID     string      `cbor:"id"`
	Method string      `cbor:"method"`
	Params interface{} `cbor:"params,omitempty"`
}

type rpcResponse struct {
	ID     string          `cbor:"id"`
	Result cbor.RawMessage `cbor:"result,omitempty"`
	Error  *rpcError       `cbor:"error,omitempty"`
}

type rpcError struct {
	Code    int    `cbor:"code"`
	Message string `cbor:"message"`
}

type authUserParams struct {
	Network string  `cbor:"network"`
	Path    []int32 `cbor:"path"`
}

type getXpubParams struct {
	Network string  `cbor:"network"`
	Path    []int32 `cbor:"path"`
}

type httpRequestResult struct {
	HTTPRequest *httpRequestEnvelope `cbor:"http_request"`
}

type httpRequestEnvelope struct {
	Params httpRequestParams `cbor:"params"`
}

type httpRequestParams struct {
	Urls cbor.RawMessage `cbor:"urls"`
	Data []byte          `cbor:"data"`
}

func pathToInt32(path common.DerivationPath) []int32 {
	out := make([]int32, len(path))
	for i, c := range path {
		out[i] = int32(c)
	}
	return out
}

// Start begins a command, producing the first outbound CBOR-RPC request.
func (i *Interpreter) Start(command common.Command) (common.Transmit, error) {
	if i.kind != stateNew {
		return common.Transmit{}, common.NewError(common.ErrUnexpectedResult, "interpreter already started")
	}

	var req rpcRequest
	switch c := command.(type) {
	case common.Unlock:
		i.pending = cmdUnlock
		i.network = c.Network
		req = rpcRequest{
			ID:     i.counter.Next(),
			Method: "auth_user",
			Params: authUserParams{Network: networkString(c.Network), Path: []int32{}},
		}
		i.kind = stateAuthStarted
	case common.GetMasterFingerprint:
		i.pending = cmdGetMasterFingerprint
		req = rpcRequest{
			ID:     i.counter.Next(),
			Method: "get_xpub",
			Params: getXpubParams{Network: networkString(i.network), Path: []int32{}},
		}
		i.kind = stateXpubStarted
	case common.GetXpub:
		i.pending = cmdGetXpub
		req = rpcRequest{
			ID:     i.counter.Next(),
			Method: "get_xpub",
			Params: getXpubParams{Network: networkString(i.network), Path: pathToInt32(c.Path)},
		}
		i.kind = stateXpubStarted
	default:
		return common.Transmit{}, common.NewError(common.ErrMissingCommandInfo, fmt.Sprintf("unsupported command %T", command))
	}

	payload, err := cbor.Marshal(req)
	if err != nil {
		return common.Transmit{}, common.NewError(common.ErrSerialization, err.Error())
	}
	return common.Transmit{Recipient: common.Device{}, Payload: payload}, nil
}

// Exchange consumes one reply (from the device, or from the PIN server
// while in stateWaitingPinServer).
func (i *Interpreter) Exchange(reply []byte) (*common.Transmit, error) {
	switch i.kind {
	case stateAuthStarted:
		return i.exchangeAuthStarted(reply)
	case stateWaitingPinServer:
		return i.exchangeWaitingPinServer(reply)
	case stateWaitingFinalHandshake:
		return i.exchangeWaitingFinalHandshake(reply)
	case stateXpubStarted:
		return i.exchangeXpubStarted(reply)
	default:
		return nil, nil
	}
}

func decodeRPCResponse(reply []byte) (rpcResponse, error) {
	var res rpcResponse
	if err := cbor.Unmarshal(reply, &res); err != nil {
		return rpcResponse{}, common.NewError(common.ErrSerialization, err.Error())
	}
	if res.Error != nil {
		return rpcResponse{}, &common.Error{Kind: common.ErrRpc, Code: res.Error.Code, Message: res.Error.Message}
	}
	if res.Result == nil {
		return rpcResponse{}, common.NewError(common.ErrNoErrorOrResult, "")
	}
	return res, nil
}

func (i *Interpreter) exchangeAuthStarted(reply []byte) (*common.Transmit, error) {
	res, err := decodeRPCResponse(reply)
	if err != nil {
		return nil, err
	}

	var result httpRequestResult
	if err := cbor.Unmarshal(res.Result, &result); err != nil || result.HTTPRequest == nil {
		return nil, common.NewError(common.ErrUnexpectedResult, "expected http_request result")
	}

	url, err := extractURL(result.HTTPRequest.Params)
	if err != nil {
		return nil, common.NewError(common.ErrSerialization, err.Error())
	}

	i.pinURL = url
	i.kind = stateWaitingPinServer
	return &common.Transmit{
		Recipient: common.PinServer{URL: url},
		Payload:   result.HTTPRequest.Params.Data,
	}, nil
}

func extractURL(params httpRequestParams) (string, error) {
	if len(params.Urls) > 0 {
		var list []string
		if err := cbor.Unmarshal(params.Urls, &list); err == nil {
			if len(list) == 0 {
				return "", fmt.Errorf("jade: empty urls array")
			}
			return list[0], nil
		}
		var obj struct {
			URL string `cbor:"url"`
		}
		if err := cbor.Unmarshal(params.Urls, &obj); err == nil && obj.URL != "" {
			return obj.URL, nil
		}
	}
	return "", fmt.Errorf("jade: no usable url in http_request params")
}

func (i *Interpreter) exchangeWaitingPinServer(reply []byte) (*common.Transmit, error) {
	var pinParams interface{}
	if err := json.Unmarshal(reply, &pinParams); err != nil {
		return nil, common.NewError(common.ErrSerialization, err.Error())
	}

	req := rpcRequest{ID: i.counter.Next(), Method: "pin", Params: pinParams}
	payload, err := cbor.Marshal(req)
	if err != nil {
		return nil, common.NewError(common.ErrSerialization, err.Error())
	}

	i.kind = stateWaitingFinalHandshake
	return &common.Transmit{Recipient: common.Device{}, Payload: payload}, nil
}

func (i *Interpreter) exchangeWaitingFinalHandshake(reply []byte) (*common.Transmit, error) {
	res, err := decodeRPCResponse(reply)
	if err != nil {
		return nil, err
	}

	var ok bool
	if err := cbor.Unmarshal(res.Result, &ok); err != nil {
		return nil, common.NewError(common.ErrUnexpectedResult, "expected boolean handshake result")
	}

	if !ok {
		return nil, common.NewError(common.ErrAuthenticationRefused, "")
	}

	i.response = common.TaskDone{}
	i.kind = stateFinished
	return nil, nil
}

func (i *Interpreter) exchangeXpubStarted(reply []byte) (*common.Transmit, error) {
	res, err := decodeRPCResponse(reply)
	if err != nil {
		return nil, err
	}

	var xpub string
	if err := cbor.Unmarshal(res.Result, &xpub); err != nil {
		return nil, common.NewError(common.ErrUnexpectedResult, "expected xpub string result")
	}

	switch i.pending {
	case cmdGetMasterFingerprint:
		fp, err := common.FingerprintFromXpub(xpub)
		if err != nil {
			return nil, common.NewError(common.ErrUnexpectedResult, err.Error())
		}
		i.response = common.MasterFingerprint{Fingerprint: fp}
	case cmdGetXpub:
		i.response = common.Xpub{Xpub: xpub}
	default:
		return nil, common.NewError(common.ErrUnexpectedResult, "no pending command")
	}

	i.kind = stateFinished
	return nil, nil
}

// End extracts the terminal response.
func (i *Interpreter) End() (common.Response, error) {
	if i.kind != stateFinished {
		return nil, common.NewError(common.ErrNoErrorOrResult, "")
	}
	return i.response, nil
}
