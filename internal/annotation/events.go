package annotation

import (
	"bytes"
	"encoding/json"
)

// IngestionRequest is decoded once per invocation from the inbound event.
// Every field is optional at decode time; an empty value means the event did
// not carry it, and the pipeline only fails when it needs the value.
type IngestionRequest struct {
	CorrelationID string
	VariantID     string
	TenantID      string
	Source        SourceLocation
	Destination   DestinationLocation
	Notification  Notification
}

type SourceLocation struct {
	BucketName  string
	Path        string
	FileName    string
	AccessToken string
	ReadURL     string
}

type DestinationLocation struct {
	BucketName  string
	Path        string
	AccessToken string
}

type Notification struct {
	TopicName string
}

// Status is the outcome carried by every published message.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// OutcomeMessage is published exactly once per invocation. Unknown fields are
// encoded as null.
type OutcomeMessage struct {
	UUID      *string `json:"uuid"`
	VariantID *string `json:"variantId"`
	FilePath  *string `json:"filePath"`
	FileName  *string `json:"fileName"`
	Status    Status  `json:"status"`
}

type outcomeEnvelope struct {
	Message OutcomeMessage `json:"message"`
}

// PushEnvelope is the body of a push delivery: the event payload travels
// base64-encoded in Message.Data.
type PushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId,omitempty"`
		PublishTime string            `json:"publishTime,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription,omitempty"`
}

// wire form of the decoded event payload. Sections that are not JSON objects
// decode as absent and scalar leaves of any type decode as text, so one odd
// value never discards the rest of the event.
type eventPayload struct {
	Metadata *metadataSection `json:"metadata"`
	Bucket   *bucketSection   `json:"bucket"`
	Response *responseSection `json:"response"`
}

type metadataSection struct {
	UUID      text `json:"uuid"`
	VariantID text `json:"variantId"`
	ProjectID text `json:"projectId"`
}

type bucketSection struct {
	Source      *sourceSection      `json:"source"`
	Destination *destinationSection `json:"destination"`
}

type sourceSection struct {
	File          text `json:"file"`
	Path          text `json:"path"`
	BucketName    text `json:"bucketName"`
	AccessToken   text `json:"accessToken"`
	ReadSignedURL text `json:"readSignedUrl"`
}

type destinationSection struct {
	Path        text `json:"path"`
	BucketName  text `json:"bucketName"`
	AccessToken text `json:"accessToken"`
}

type responseSection struct {
	Topic text `json:"topic"`
}

func (m *metadataSection) UnmarshalJSON(b []byte) error {
	type plain metadataSection
	return decodeObject(b, (*plain)(m))
}

func (s *bucketSection) UnmarshalJSON(b []byte) error {
	type plain bucketSection
	return decodeObject(b, (*plain)(s))
}

func (s *sourceSection) UnmarshalJSON(b []byte) error {
	type plain sourceSection
	return decodeObject(b, (*plain)(s))
}

func (s *destinationSection) UnmarshalJSON(b []byte) error {
	type plain destinationSection
	return decodeObject(b, (*plain)(s))
}

func (s *responseSection) UnmarshalJSON(b []byte) error {
	type plain responseSection
	return decodeObject(b, (*plain)(s))
}

// decodeObject fills v from b when b is a JSON object and leaves v zero
// otherwise.
func decodeObject(b []byte, v any) error {
	if b = bytes.TrimSpace(b); len(b) == 0 || b[0] != '{' {
		return nil
	}
	return json.Unmarshal(b, v)
}

// text is a leaf that accepts any JSON value. Strings are kept as is, null is
// empty, and numbers, booleans and nested values keep their compact JSON
// form, so a numeric id 7 reads as "7".
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*t = text(buf.String())
	}
	return nil
}

func (p *eventPayload) request() IngestionRequest {
	var req IngestionRequest
	if m := p.Metadata; m != nil {
		req.CorrelationID = string(m.UUID)
		req.VariantID = string(m.VariantID)
		req.TenantID = string(m.ProjectID)
	}
	if b := p.Bucket; b != nil {
		if src := b.Source; src != nil {
			req.Source = SourceLocation{
				BucketName:  string(src.BucketName),
				Path:        string(src.Path),
				FileName:    string(src.File),
				AccessToken: string(src.AccessToken),
				ReadURL:     string(src.ReadSignedURL),
			}
		}
		if dst := b.Destination; dst != nil {
			req.Destination = DestinationLocation{
				BucketName:  string(dst.BucketName),
				Path:        string(dst.Path),
				AccessToken: string(dst.AccessToken),
			}
		}
	}
	if r := p.Response; r != nil {
		req.Notification.TopicName = string(r.Topic)
	}
	return req
}
