package annotation

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) []byte {
	return []byte(base64.StdEncoding.EncodeToString([]byte(s)))
}

func TestDecodePayload_FullEvent(t *testing.T) {
	req, err := DecodePayload(b64(`{
		"metadata": {"uuid": "u1", "variantId": "v1", "projectId": "p1"},
		"bucket": {
			"source": {"file": "invoice.jpg", "path": "in", "bucketName": "src", "accessToken": "s-tok", "readSignedUrl": "https://r"},
			"destination": {"path": "out", "bucketName": "dst", "accessToken": "d-tok"}
		},
		"response": {"topic": "t1"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, IngestionRequest{
		CorrelationID: "u1",
		VariantID:     "v1",
		TenantID:      "p1",
		Source: SourceLocation{
			BucketName:  "src",
			Path:        "in",
			FileName:    "invoice.jpg",
			AccessToken: "s-tok",
			ReadURL:     "https://r",
		},
		Destination:  DestinationLocation{BucketName: "dst", Path: "out", AccessToken: "d-tok"},
		Notification: Notification{TopicName: "t1"},
	}, req)
}

func TestDecodePayload_MissingSectionsAreEmpty(t *testing.T) {
	req, err := DecodePayload(b64(`{"metadata": {"uuid": "u1"}, "unknown": [1, 2]}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", req.CorrelationID)
	assert.Empty(t, req.Source)
	assert.Empty(t, req.Destination)
	assert.Empty(t, req.Notification.TopicName)
}

func TestDecodePayload_NullSections(t *testing.T) {
	req, err := DecodePayload(b64(`{"metadata": null, "bucket": {"source": null}, "response": null}`))
	require.NoError(t, err)
	assert.Equal(t, IngestionRequest{}, req)
}

func TestDecodePayload_Lenient(t *testing.T) {
	cases := map[string]string{
		"comments":        "{\n// sender note\n\"metadata\": {\"uuid\": \"u1\" /* inline */}}",
		"trailing commas": `{"metadata": {"uuid": "u1",},}`,
		"trailing data":   `{"metadata": {"uuid": "u1"}} garbage after`,
		"surrounding ws":  "\n\t {\"metadata\": {\"uuid\": \"u1\"}}\n",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req, err := DecodePayload(b64(payload))
			require.NoError(t, err)
			assert.Equal(t, "u1", req.CorrelationID)
		})
	}
}

func TestDecodePayload_ScalarsOfAnyTypeBecomeText(t *testing.T) {
	req, err := DecodePayload(b64(`{
		"metadata": {"uuid": 42, "variantId": 7.5, "projectId": true},
		"bucket": {"source": {"file": "invoice.jpg", "path": null}, "destination": {"path": ["a", "b"]}},
		"response": {"topic": "t1"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "42", req.CorrelationID)
	assert.Equal(t, "7.5", req.VariantID)
	assert.Equal(t, "true", req.TenantID)
	assert.Equal(t, "invoice.jpg", req.Source.FileName)
	assert.Empty(t, req.Source.Path)
	assert.Equal(t, `["a","b"]`, req.Destination.Path)
	assert.Equal(t, "t1", req.Notification.TopicName)
}

func TestDecodePayload_NonObjectSectionsAreAbsent(t *testing.T) {
	req, err := DecodePayload(b64(`{
		"metadata": "u1",
		"bucket": {"source": 12, "destination": {"path": "out", "bucketName": "dst"}},
		"response": {"topic": "t1"}
	}`))
	require.NoError(t, err)

	assert.Empty(t, req.CorrelationID)
	assert.Empty(t, req.Source)
	assert.Equal(t, DestinationLocation{Path: "out", BucketName: "dst"}, req.Destination)
	assert.Equal(t, "t1", req.Notification.TopicName)
}

func TestDecodePayload_RawControlCharacters(t *testing.T) {
	req, err := DecodePayload(b64("{\"metadata\": {\"uuid\": \"u\t1\", \"variantId\": \"line\nbreak\"}}"))
	require.NoError(t, err)
	assert.Equal(t, "u\t1", req.CorrelationID)
	assert.Equal(t, "line\nbreak", req.VariantID)
}

func TestDecodePayload_PayloadWhitespaceAroundBase64(t *testing.T) {
	data := append([]byte("  "), b64(`{"metadata": {"uuid": "u1"}}`)...)
	data = append(data, '\n')
	req, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, "u1", req.CorrelationID)
}

func TestDecodePayload_Errors(t *testing.T) {
	cases := map[string][]byte{
		"not base64":     []byte("!!not-base64!!"),
		"empty":          nil,
		"blank json":     b64("   "),
		"invalid utf8":   []byte(base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, '{', '}'})),
		"not json":       b64("hello"),
		"top level list": b64(`[1, 2, 3]`),
		"top level text": b64(`"metadata"`),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePayload(data)
			require.Error(t, err)
			assert.Equal(t, KindDecode, KindOf(err))
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{
		"message": {"data": "eyJhIjoxfQ==", "attributes": {"k": "v"}, "messageId": "m-1"},
		"subscription": "projects/p/subscriptions/s"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "eyJhIjoxfQ==", env.Message.Data)
	assert.Equal(t, "m-1", env.Message.MessageID)
	assert.Equal(t, "projects/p/subscriptions/s", env.Subscription)

	_, err = DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)
}

func TestEscapeControlChars(t *testing.T) {
	in := []byte("{\"a\":\"x\ty\",\n\"b\":\"q\\\"\n\"}")
	assert.Equal(t, "{\"a\":\"x\\u0009y\",\n\"b\":\"q\\\"\\u000a\"}", string(escapeControlChars(in)))

	clean := []byte(`{"a":"b"}`)
	assert.Equal(t, clean, escapeControlChars(clean))
}
