// Package runner drives a common.Interpreter to completion against a
// transport.Device and transport.HTTPClient. It is the only place in this
// library that performs I/O: interpreters stay pure, the runner dispatches
// their outbound frames to whichever recipient they name and feeds replies
// back in until the interpreter is done.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wizardsardine/bhwi/common"
	"github.com/wizardsardine/bhwi/transport"
)

// Run executes command against interpreter, dispatching outbound frames to
// device or httpClient depending on each Transmit's Recipient, until the
// interpreter reaches its terminal state. logger may be nil, in which case
// a no-op logger is used.
func Run(
	ctx context.Context,
	command common.Command,
	interpreter common.Interpreter,
	device transport.Device,
	httpClient transport.HTTPClient,
	logger *zap.Logger,
) (common.Response, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	transmit, err := interpreter.Start(command)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	for {
		reply, err := dispatch(ctx, transmit, device, httpClient, logger)
		if err != nil {
			return nil, err
		}

		next, err := interpreter.Exchange(reply)
		if err != nil {
			return nil, fmt.Errorf("exchange: %w", err)
		}
		if next == nil {
			break
		}
		transmit = *next
	}

	response, err := interpreter.End()
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return response, nil
}

func dispatch(
	ctx context.Context,
	transmit common.Transmit,
	device transport.Device,
	httpClient transport.HTTPClient,
	logger *zap.Logger,
) ([]byte, error) {
	switch recipient := transmit.Recipient.(type) {
	case common.Device:
		logger.Debug("dispatching frame",
			zap.String("recipient", "device"),
			zap.Int("payload_len", len(transmit.Payload)),
			zap.Bool("encrypted", transmit.Encrypted),
		)
		if device == nil {
			return nil, common.NewError(common.ErrRequest, "no device transport configured")
		}
		reply, err := device.Exchange(ctx, transmit.Payload, transmit.Encrypted)
		if err != nil {
			logger.Debug("device exchange failed", zap.Error(err))
			return nil, common.WrapError("device exchange", err)
		}
		return reply, nil
	case common.PinServer:
		logger.Debug("dispatching frame",
			zap.String("recipient", "pin_server"),
			zap.String("url", recipient.URL),
			zap.Int("payload_len", len(transmit.Payload)),
		)
		if httpClient == nil {
			return nil, common.NewError(common.ErrRequest, "no http client configured")
		}
		reply, err := httpClient.Request(ctx, recipient.URL, transmit.Payload)
		if err != nil {
			logger.Debug("pin server request failed", zap.Error(err))
			return nil, common.WrapError("pin server request", err)
		}
		return reply, nil
	default:
		return nil, common.NewError(common.ErrUnexpectedResult, fmt.Sprintf("unknown recipient %T", transmit.Recipient))
	}
}
