package annotation

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/jsonc"
)

// DecodePayload turns the base64 event data into an IngestionRequest.
//
// Parsing is lenient: comments and trailing commas are dropped, raw control
// characters inside strings are accepted, and anything after the first JSON
// value is ignored. Fields of an unexpected JSON type never fail the parse;
// see eventPayload.
func DecodePayload(data []byte) (IngestionRequest, error) {
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return IngestionRequest{}, &Error{Kind: KindDecode, Op: "decode base64 payload", Err: err}
	}
	if !utf8.Valid(raw) {
		return IngestionRequest{}, &Error{Kind: KindDecode, Op: "decode base64 payload", Err: errors.New("payload is not valid utf-8")}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return IngestionRequest{}, &Error{Kind: KindDecode, Op: "parse payload", Err: errors.New("empty payload")}
	}

	var payload eventPayload
	dec := json.NewDecoder(bytes.NewReader(escapeControlChars(jsonc.ToJSON(raw))))
	if err := dec.Decode(&payload); err != nil {
		return IngestionRequest{}, &Error{Kind: KindDecode, Op: "parse payload", Err: err}
	}
	return payload.request(), nil
}

// DecodeEnvelope parses a push delivery body.
func DecodeEnvelope(body []byte) (PushEnvelope, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PushEnvelope{}, fmt.Errorf("parse push envelope: %w", err)
	}
	return env, nil
}

// escapeControlChars rewrites raw control characters found inside JSON
// strings as \u escapes, which encoding/json would otherwise reject.
func escapeControlChars(in []byte) []byte {
	var out []byte
	inString, escaped := false, false
	for i, c := range in {
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			if out == nil {
				out = append(make([]byte, 0, len(in)+16), in[:i]...)
			}
			out = fmt.Appendf(out, `\u%04x`, c)
			continue
		}
		if out != nil {
			out = append(out, c)
		}
	}
	if out == nil {
		return in
	}
	return out
}
