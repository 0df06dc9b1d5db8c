package handlers

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	idspkg "github.com/drblury/lambdaloop/internal/runtime/ids"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	metadatapkg "github.com/drblury/lambdaloop/internal/runtime/metadata"
	registrypkg "github.com/drblury/lambdaloop/internal/runtime/registry"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

// ProtoFunctionContext provides strongly typed access to the decoded
// protobuf payload.
type ProtoFunctionContext[T proto.Message] struct {
	FunctionContextBase
	Payload T
}

// ProtoFunction processes a typed protobuf payload (decoded from its JSON
// wire form) and returns the result message to send back, or nil for no
// response body.
type ProtoFunction[T proto.Message] func(ctx context.Context, event ProtoFunctionContext[T]) (proto.Message, error)

// NewProtoFunction wraps a typed protobuf function as a registry Function.
// prototype supplies the concrete message type cloned per invocation.
func NewProtoFunction[T proto.Message](prototype T, name string, handler ProtoFunction[T], logger loggingpkg.ServiceLogger) (registrypkg.Function, error) {
	if name == "" {
		return nil, errspkg.ErrFunctionNameRequired
	}
	if handler == nil {
		return nil, errspkg.ErrHandlerRequired
	}
	if isNilProto(prototype) {
		return nil, errspkg.ErrPayloadPointerNeeded
	}

	return registrypkg.NewFunction(name, func(msg *message.Message) (*message.Message, error) {
		typed, err := clonePrototype(prototype)
		if err != nil {
			return nil, err
		}

		if err := protojson.Unmarshal(msg.Payload, typed); err != nil {
			return nil, fmt.Errorf("lambdaloop: failed to unmarshal %T payload: %w", prototype, err)
		}

		event := ProtoFunctionContext[T]{
			FunctionContextBase: FunctionContextBase{
				Metadata: metadatapkg.FromWatermill(msg.Metadata),
				Logger:   logger,
			},
			Payload: typed,
		}

		out, err := handler(msg.Context(), event)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, nil
		}

		payload, err := protojson.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("lambdaloop: failed to marshal %T result: %w", out, err)
		}

		result := message.NewMessage(idspkg.NewULID(), payload)
		result.Metadata = metadatapkg.ToWatermill(
			event.Metadata.With(transportpkg.HeaderContentType, "application/json"))
		return result, nil
	}), nil
}

func clonePrototype[T proto.Message](prototype T) (T, error) {
	if isNilProto(prototype) {
		var zero T
		return zero, errspkg.ErrPayloadPointerNeeded
	}

	cloned := proto.Clone(prototype)
	proto.Reset(cloned)

	typed, ok := cloned.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("lambdaloop: unexpected prototype type %T", cloned)
	}
	return typed, nil
}

func isNilProto(msg proto.Message) bool {
	if msg == nil {
		return true
	}
	return !msg.ProtoReflect().IsValid()
}
