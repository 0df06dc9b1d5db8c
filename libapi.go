package lambdaloop

import (
	"context"

	runtimepkg "github.com/drblury/lambdaloop/internal/runtime"
	configpkg "github.com/drblury/lambdaloop/internal/runtime/config"
	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	handlerpkg "github.com/drblury/lambdaloop/internal/runtime/handlers"
	idspkg "github.com/drblury/lambdaloop/internal/runtime/ids"
	jsoncodec "github.com/drblury/lambdaloop/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	metadatapkg "github.com/drblury/lambdaloop/internal/runtime/metadata"
	registrypkg "github.com/drblury/lambdaloop/internal/runtime/registry"
	tracingpkg "github.com/drblury/lambdaloop/internal/runtime/tracing"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
	"google.golang.org/protobuf/proto"
)

type (
	Config       = configpkg.Config
	EventLoop    = runtimepkg.EventLoop
	Dependencies = runtimepkg.Dependencies
	Transport    = runtimepkg.Transport
	MessageCodec = runtimepkg.MessageCodec

	Catalog  = registrypkg.Catalog
	Function = registrypkg.Function
	Registry = registrypkg.Registry

	Invocation = transportpkg.Invocation

	JSONFunctionContext[T any]            = handlerpkg.JSONFunctionContext[T]
	JSONFunction[T any, O any]            = handlerpkg.JSONFunction[T, O]
	ProtoFunctionContext[T proto.Message] = handlerpkg.ProtoFunctionContext[T]
	ProtoFunction[T proto.Message]        = handlerpkg.ProtoFunction[T]
	FunctionContextBase                   = handlerpkg.FunctionContextBase

	InvokeFunc             = runtimepkg.InvokeFunc
	InvokeMiddleware       = runtimepkg.InvokeMiddleware
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	ErrorReport       = runtimepkg.ErrorReport
	LoopStats         = runtimepkg.LoopStats
	LoopStatsSnapshot = runtimepkg.LoopStatsSnapshot

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ResolutionError     = errspkg.ResolutionError
	PanicError          = errspkg.PanicError
	FatalTransportError = errspkg.FatalTransportError
	ReportDeliveryError = errspkg.ReportDeliveryError
)

var (
	NewEventLoop    = runtimepkg.NewEventLoop
	TryNewEventLoop = runtimepkg.TryNewEventLoop
	ConfigFromEnv   = configpkg.FromEnv
	ValidateConfig  = configpkg.ValidateConfig

	NewRegistry         = registrypkg.New
	NewFunction         = registrypkg.NewFunction
	NewSupplierFunction = registrypkg.NewSupplierFunction

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	LogInvocationMiddleware = runtimepkg.LogInvocationMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	NewErrorReport = runtimepkg.NewErrorReport

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrCatalogRequired      = errspkg.ErrCatalogRequired
	ErrFunctionRequired     = errspkg.ErrFunctionRequired
	ErrFunctionNameRequired = errspkg.ErrFunctionNameRequired
	ErrHandlerRequired      = errspkg.ErrHandlerRequired
	ErrPayloadPointerNeeded = errspkg.ErrPayloadPointerNeeded
	ErrRequestIDMissing     = errspkg.ErrRequestIDMissing

	IsFatalTransport = errspkg.IsFatalTransport

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger

	NewMetadata = metadatapkg.New

	NewULID = idspkg.NewULID

	CurrentTraceID = tracingpkg.Current
)

// DefaultRuntimeVersion is the protocol version segment used when the
// configuration does not override it.
const DefaultRuntimeVersion = configpkg.DefaultRuntimeVersion

// Environment keys consumed by ConfigFromEnv and the resolver chain.
const (
	EnvRuntimeAPI         = configpkg.EnvRuntimeAPI
	EnvDefaultHandler     = configpkg.EnvDefaultHandler
	EnvHandler            = configpkg.EnvHandler
	EnvFunctionDefinition = configpkg.EnvFunctionDefinition
)

// Control protocol headers.
const (
	HeaderRequestID          = transportpkg.HeaderRequestID
	HeaderTraceID            = transportpkg.HeaderTraceID
	HeaderDeadlineMS         = transportpkg.HeaderDeadlineMS
	HeaderInvokedFunctionARN = transportpkg.HeaderInvokedFunctionARN
	HeaderContentType        = transportpkg.HeaderContentType
	HeaderFunctionDefinition = transportpkg.HeaderFunctionDefinition
)

// NewJSONFunction wraps a typed JSON function. T must be a pointer type; a
// fresh value is allocated per invocation.
func NewJSONFunction[T any, O any](name string, handler JSONFunction[T, O], logger ServiceLogger) (Function, error) {
	return handlerpkg.NewJSONFunction(name, handler, logger)
}

// NewJSONSupplier wraps a producer-only function that receives no event
// payload.
func NewJSONSupplier[O any](name string, handler func(ctx context.Context) (O, error), logger ServiceLogger) (Function, error) {
	return handlerpkg.NewJSONSupplier(name, handler, logger)
}

// NewProtoFunction wraps a typed protobuf function. The prototype supplies
// the concrete message type cloned per invocation.
func NewProtoFunction[T proto.Message](prototype T, name string, handler ProtoFunction[T], logger ServiceLogger) (Function, error) {
	return handlerpkg.NewProtoFunction(prototype, name, handler, logger)
}
