package runtime

import (
	"fmt"

	configpkg "github.com/drblury/lambdaloop/internal/runtime/config"
	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	registrypkg "github.com/drblury/lambdaloop/internal/runtime/registry"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

// resolverCandidate is one identifier in the lookup fallback chain together
// with the source it came from, for error reporting.
type resolverCandidate struct {
	source string
	name   string
}

// resolveFunction walks the fallback chain until a registered function
// matches both the candidate name and the event's content type. The empty
// candidate selects the registry default when exactly one function is
// registered. On exhaustion it returns a *errspkg.ResolutionError listing
// everything that was tried.
func resolveFunction(conf *configpkg.Config, catalog registrypkg.Catalog, inv *transportpkg.Invocation) (registrypkg.Function, error) {
	candidates := []resolverCandidate{
		{source: configpkg.EnvDefaultHandler, name: conf.DefaultHandler},
		{source: configpkg.EnvHandler, name: conf.Handler},
		{source: "default", name: ""},
		{source: configpkg.EnvFunctionDefinition, name: conf.FunctionDefinition},
		{source: transportpkg.HeaderFunctionDefinition, name: inv.Headers.Get(transportpkg.HeaderFunctionDefinition)},
	}

	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		// Only the built-in default step may probe with an empty name.
		if candidate.name == "" && candidate.source != "default" {
			continue
		}
		tried = append(tried, fmt.Sprintf("%s=%q", candidate.source, candidate.name))
		if fn := catalog.Lookup(candidate.name, inv.ContentType); fn != nil {
			return fn, nil
		}
	}

	return nil, &errspkg.ResolutionError{Tried: tried, Known: catalog.Names()}
}
