package validation

import (
	"sort"
	"strings"
)

// ValidationErrors holds the violations found in a document, keyed by the path a client
// has to review. A nil or empty ValidationErrors means the document is valid.
type ValidationErrors map[string][]string

// Add records a message under key. A message already recorded for the key is not repeated.
func (v ValidationErrors) Add(key, message string) {
	for _, m := range v[key] {
		if m == message {
			return
		}
	}
	v[key] = append(v[key], message)
}

// Merge adds every message of o to v.
func (v ValidationErrors) Merge(o ValidationErrors) {
	for key, messages := range o {
		for _, m := range messages {
			v.Add(key, m)
		}
	}
}

// Keys returns the keys in sorted order.
func (v ValidationErrors) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Err returns v as an error, or nil when it holds no violation.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("document validation failed: ")
	for i, key := range v.Keys() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(v[key], ", "))
	}
	return sb.String()
}
