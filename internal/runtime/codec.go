package runtime

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

// MessageCodec converts between the wire representation of an invocation
// and the message passed to a function. Replace it through Dependencies
// to support other envelope formats.
type MessageCodec interface {
	// Decode builds the function input message from a polled invocation.
	// For supplier functions the event body is ignored.
	Decode(ctx context.Context, inv *transportpkg.Invocation, supplier bool) (*message.Message, error)

	// Encode turns the function output message into the response body.
	// A nil output means the function produced nothing to send back.
	Encode(in *message.Message, out *message.Message) ([]byte, error)
}

// defaultCodec passes event payloads through verbatim and carries all
// invocation headers as message metadata.
type defaultCodec struct{}

func (defaultCodec) Decode(ctx context.Context, inv *transportpkg.Invocation, supplier bool) (*message.Message, error) {
	payload := inv.Payload
	if supplier {
		payload = nil
	}
	msg := message.NewMessage(inv.RequestID, payload)
	for key, value := range inv.Headers {
		msg.Metadata.Set(key, value)
	}
	msg.SetContext(ctx)
	return msg, nil
}

func (defaultCodec) Encode(_ *message.Message, out *message.Message) ([]byte, error) {
	if out == nil {
		return nil, nil
	}
	return out.Payload, nil
}
