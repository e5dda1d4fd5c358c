package client

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConnectionString is returned for malformed connection strings.
var ErrInvalidConnectionString = errors.New("invalid connection string")

// ConnectionString holds the parts of a service connection string.
type ConnectionString struct {
	HostName              string
	SharedAccessKeyName   string
	SharedAccessKey       string
	SharedAccessSignature string
}

// ParseConnectionString parses HostName=...;SharedAccessKeyName=...;SharedAccessKey=...
// or the same with SharedAccessSignature in place of the key pair.
func ParseConnectionString(s string) (*ConnectionString, error) {
	cs := &ConnectionString{}
	for part := range strings.SplitSeq(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// Keys and signatures are base64 and may end in '='.
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed segment %q", ErrInvalidConnectionString, part)
		}
		switch strings.TrimSpace(k) {
		case "HostName":
			cs.HostName = v
		case "SharedAccessKeyName":
			cs.SharedAccessKeyName = v
		case "SharedAccessKey":
			cs.SharedAccessKey = v
		case "SharedAccessSignature":
			cs.SharedAccessSignature = v
		}
	}

	if cs.HostName == "" {
		return nil, fmt.Errorf("%w: HostName is required", ErrInvalidConnectionString)
	}
	hasKey := cs.SharedAccessKeyName != "" && cs.SharedAccessKey != ""
	if !hasKey && cs.SharedAccessSignature == "" {
		return nil, fmt.Errorf("%w: either SharedAccessKeyName and SharedAccessKey or SharedAccessSignature is required", ErrInvalidConnectionString)
	}
	return cs, nil
}

// HubName returns the first label of the host name.
func (cs *ConnectionString) HubName() string {
	name, _, _ := strings.Cut(cs.HostName, ".")
	return name
}

// Authorizer returns the authorizer implied by the connection string: a
// signing authorizer for key credentials, a static one for a signature.
func (cs *ConnectionString) Authorizer(opts ...SASOption) (Authorizer, error) {
	if cs.SharedAccessKey != "" && cs.SharedAccessKeyName != "" {
		return NewSASAuthorizer(cs.SharedAccessKeyName, cs.SharedAccessKey, opts...)
	}
	return StaticAuthorizer(cs.SharedAccessSignature), nil
}
