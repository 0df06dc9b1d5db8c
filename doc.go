// Package lambdaloop implements a custom-runtime event loop against the
// Lambda runtime control protocol. It long-polls the control endpoint for
// invocation events, resolves the target function from an in-process
// registry through a configurable fallback chain, invokes it through a
// middleware stack, and posts the result or a structured error report back
// to the endpoint.
//
// Functions are registered on a Registry and may be raw message handlers,
// typed JSON functions, typed protobuf functions (decoded from their JSON
// wire form), or suppliers that take no input. The loop resolves the
// function per event from, in order: the DEFAULT_HANDLER environment
// variable, the _HANDLER environment variable, the registry default (when
// exactly one function is registered), the FUNCTION_DEFINITION setting,
// and finally the event's function.definition header.
//
// A minimal runtime:
//
//	conf := lambdaloop.ConfigFromEnv()
//	logger := lambdaloop.NewSlogServiceLogger(slog.Default())
//
//	registry := lambdaloop.NewRegistry()
//	fn, err := lambdaloop.NewJSONFunction("greeter",
//		func(ctx context.Context, event lambdaloop.JSONFunctionContext[*GreetRequest]) (*GreetResponse, error) {
//			return &GreetResponse{Greeting: "hello " + event.Payload.Name}, nil
//		}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := registry.Register(fn); err != nil {
//		log.Fatal(err)
//	}
//
//	loop := lambdaloop.NewEventLoop(conf, logger, lambdaloop.Dependencies{Catalog: registry})
//	loop.Start(context.Background())
//	<-loop.Done()
//
// Transient poll failures are retried with exponential backoff; fatal
// transport failures stop the loop and surface through Err. Invocation
// failures, including panics recovered by the default middleware stack,
// are reported to the control endpoint as structured error documents and
// never stop the loop. The emulator subpackage provides an in-process
// control endpoint for local development and tests.
package lambdaloop
