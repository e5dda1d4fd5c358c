package query

import "strings"

// Type is the category of entity a query returns. The service declares the
// type of every page it sends back; cursors reject pages whose declared type
// differs from the requested one.
type Type int

const (
	// TypeUnknown means the type was not declared or not recognized.
	// It is never a valid request type.
	TypeUnknown Type = iota
	TypeTwin
	TypeDeviceJob
	TypeJobResponse
	TypeRaw
)

var typeNames = map[Type]string{
	TypeUnknown:     "unknown",
	TypeTwin:        "twin",
	TypeDeviceJob:   "deviceJob",
	TypeJobResponse: "jobResponse",
	TypeRaw:         "raw",
}

// String returns the wire name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return typeNames[TypeUnknown]
}

// Valid reports whether t may be used as a request type.
func (t Type) Valid() bool {
	_, known := typeNames[t]
	return known && t != TypeUnknown
}

// ParseType maps a wire name to a Type, ignoring case.
// Unrecognized names map to TypeUnknown.
func ParseType(s string) Type {
	s = strings.TrimSpace(s)
	for t, name := range typeNames {
		if strings.EqualFold(s, name) {
			return t
		}
	}
	return TypeUnknown
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	*t = ParseType(string(text))
	return nil
}
