package annotation

import (
	"path"
	"strings"
)

// JSONName replaces the final extension of name with ".json". Directory
// components are kept and leading dots of the file name are not treated as
// an extension separator, so ".env" becomes ".env.json".
func JSONName(name string) string {
	dir, file := path.Split(name)
	stem := strings.TrimLeft(file, ".")
	if i := strings.LastIndexByte(stem, '.'); i >= 0 {
		file = file[:len(file)-len(stem)+i]
	}
	return dir + file + ".json"
}

// objectKey joins a store path prefix and an object name with one slash,
// trimming trailing slashes from prefix. A prefix of "/" addresses the bucket
// root.
func objectKey(prefix, name string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// holdingName turns a correlation id into something safe to embed in a
// temporary directory name.
func holdingName(correlationID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, correlationID)
}
