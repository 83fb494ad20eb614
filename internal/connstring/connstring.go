// Package connstring parses Azure Service Bus connection strings.
package connstring

import (
	"fmt"
	"strings"
)

const (
	keyEndpoint      = "Endpoint"
	keyKeyName       = "SharedAccessKeyName"
	keyKey           = "SharedAccessKey"
	keyEntityPath    = "EntityPath"
	redactedKeyValue = "<redacted>"
)

// requiredKeys in the order they appear in a rebuilt namespace string.
var requiredKeys = []string{keyEndpoint, keyKeyName, keyKey}

// MissingKeyError reports a connection string that lacks a required part.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("connection string missing required part: %s", e.Key)
}

// Parse splits a Service Bus connection string into a namespace-level
// connection string and the embedded entity path, if any.
//
// The namespace string contains exactly Endpoint, SharedAccessKeyName and
// SharedAccessKey in that order, regardless of input order, and never
// EntityPath. The entity path is returned verbatim; it is empty when the
// input has no EntityPath part.
func Parse(raw string) (namespace string, entityPath string, err error) {
	parts := split(raw)
	for _, k := range requiredKeys {
		if _, ok := parts[k]; !ok {
			return "", "", &MissingKeyError{Key: k}
		}
	}
	namespace = fmt.Sprintf("%s=%s;%s=%s;%s=%s",
		keyEndpoint, parts[keyEndpoint],
		keyKeyName, parts[keyKeyName],
		keyKey, parts[keyKey])
	return namespace, parts[keyEntityPath], nil
}

// Redact returns the connection string with the SharedAccessKey value
// replaced, suitable for logs, the capture store and the TUI status bar.
// Strings that don't parse are returned with everything after the first
// SharedAccessKey= removed rather than risk leaking the key.
func Redact(raw string) string {
	parts := split(raw)
	if _, ok := parts[keyKey]; !ok {
		return raw
	}
	var b strings.Builder
	for i, seg := range segments(raw) {
		k, v, found := strings.Cut(seg, "=")
		if i > 0 {
			b.WriteString(";")
		}
		if found && strings.TrimSpace(k) == keyKey {
			v = redactedKeyValue
			b.WriteString(strings.TrimSpace(k) + "=" + v)
			continue
		}
		b.WriteString(seg)
	}
	return b.String()
}

// Endpoint returns the Endpoint value of a connection string, or "" when
// absent. Used to label capture runs without storing credentials.
func Endpoint(raw string) string {
	return split(raw)[keyEndpoint]
}

func segments(raw string) []string {
	var out []string
	for _, seg := range strings.Split(strings.TrimSpace(raw), ";") {
		if seg == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// split collects key=value segments into a map. Values may themselves
// contain '='; only the first one separates key from value. On duplicate
// keys the last occurrence wins.
func split(raw string) map[string]string {
	parts := make(map[string]string)
	for _, seg := range segments(raw) {
		k, v, found := strings.Cut(seg, "=")
		if !found {
			continue
		}
		parts[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return parts
}
