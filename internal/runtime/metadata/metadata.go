package metadata

import "net/textproto"

// Metadata carries the control headers of an invocation alongside the event
// payload. Keys are stored in canonical MIME header form when they originate
// from the control protocol.
type Metadata map[string]string

// Get returns the value for key, falling back to the canonical MIME header
// spelling so callers can use the wire-documented lowercase names.
func (m Metadata) Get(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return m[textproto.CanonicalMIMEHeaderKey(key)]
}

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
