package handlers

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	idspkg "github.com/drblury/lambdaloop/internal/runtime/ids"
	jsoncodec "github.com/drblury/lambdaloop/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	metadatapkg "github.com/drblury/lambdaloop/internal/runtime/metadata"
	registrypkg "github.com/drblury/lambdaloop/internal/runtime/registry"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

// JSONFunctionContext exposes the decoded payload and control headers to a
// typed JSON function.
type JSONFunctionContext[T any] struct {
	FunctionContextBase
	Payload T
}

// JSONFunction processes a decoded JSON payload and returns the result to
// send back to the platform. Returning a nil result produces an empty
// response body (consumer-style functions).
type JSONFunction[T any, O any] func(ctx context.Context, event JSONFunctionContext[T]) (O, error)

// NewJSONFunction wraps a typed JSON function as a registry Function. The
// payload type T must be a pointer so a fresh value can be allocated per
// invocation.
func NewJSONFunction[T any, O any](name string, handler JSONFunction[T, O], logger loggingpkg.ServiceLogger) (registrypkg.Function, error) {
	if name == "" {
		return nil, errspkg.ErrFunctionNameRequired
	}
	if handler == nil {
		return nil, errspkg.ErrHandlerRequired
	}

	prototypeFactory, err := jsonPrototypeFactory[T]()
	if err != nil {
		return nil, err
	}

	return registrypkg.NewFunction(name, func(msg *message.Message) (*message.Message, error) {
		typed := prototypeFactory()

		if err := jsoncodec.Unmarshal(msg.Payload, typed); err != nil {
			return nil, fmt.Errorf("lambdaloop: failed to unmarshal JSON payload: %w", err)
		}

		event := JSONFunctionContext[T]{
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

		return marshalJSONResult(out, event.Metadata)
	}), nil
}

// NewJSONSupplier wraps a producer-only function: the event payload is
// ignored and only the supplied result is sent back.
func NewJSONSupplier[O any](name string, handler func(ctx context.Context) (O, error), logger loggingpkg.ServiceLogger) (registrypkg.Function, error) {
	if name == "" {
		return nil, errspkg.ErrFunctionNameRequired
	}
	if handler == nil {
		return nil, errspkg.ErrHandlerRequired
	}

	return registrypkg.NewSupplierFunction(name, func(msg *message.Message) (*message.Message, error) {
		out, err := handler(msg.Context())
		if err != nil {
			return nil, err
		}
		return marshalJSONResult(out, metadatapkg.FromWatermill(msg.Metadata))
	}), nil
}

func jsonPrototypeFactory[T any]() (func() T, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return nil, errspkg.ErrPayloadPointerNeeded
	}
	if typ.Kind() != reflect.Ptr {
		return nil, errspkg.ErrPayloadPointerNeeded
	}
	elem := typ.Elem()
	return func() T {
		clone := reflect.New(elem).Interface()
		return clone.(T)
	}, nil
}

func marshalJSONResult(out any, md metadatapkg.Metadata) (*message.Message, error) {
	if isNilValue(out) {
		return nil, nil
	}

	payload, err := jsoncodec.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("lambdaloop: failed to marshal JSON result: %w", err)
	}

	result := message.NewMessage(idspkg.NewULID(), payload)
	result.Metadata = metadatapkg.ToWatermill(md.With(transportpkg.HeaderContentType, "application/json"))
	return result, nil
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
