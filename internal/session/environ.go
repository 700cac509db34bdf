package session

import "strings"

// environ is an environment snapshot in os.Environ form.
type environ []string

func (e environ) lookup(name string) (string, bool) {
	prefix := name + "="
	for i := len(e) - 1; i >= 0; i-- {
		if strings.HasPrefix(e[i], prefix) {
			return e[i][len(prefix):], true
		}
	}
	return "", false
}

// with returns a copy of e with name set to value.
func (e environ) with(name, value string) environ {
	prefix := name + "="
	out := make(environ, 0, len(e)+1)
	for _, kv := range e {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}

// appended returns a copy of e with value appended to name, joined by sep
// when name already has a non-empty value.
func (e environ) appended(name, value, sep string) environ {
	if cur, ok := e.lookup(name); ok && cur != "" {
		return e.with(name, cur+sep+value)
	}
	return e.with(name, value)
}
