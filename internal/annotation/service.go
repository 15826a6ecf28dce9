package annotation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/your-org/ocrflow/pkg/ocr"
	"github.com/your-org/ocrflow/pkg/storage/objectstore"
	"github.com/your-org/ocrflow/pkg/tracing"
)

const (
	jsonContentType    = "application/json"
	tenantAttributeKey = "projectId"
)

// Publisher delivers one message to a topic and returns once the broker has
// acknowledged it.
// Implementations reject an empty topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error
}

// Service runs the annotation pipeline once per inbound event. It holds no
// per-invocation state, so concurrent calls are safe.
type Service struct {
	stores       objectstore.Opener
	engine       ocr.Engine
	publisher    Publisher
	logger       *zap.Logger
	workDir      string
	defaultTopic string
	successCode  int
}

type Params struct {
	Stores    objectstore.Opener
	Engine    ocr.Engine
	Publisher Publisher
	Logger    *zap.Logger
	// WorkDir is the parent of the per-invocation holding directories.
	// Empty means os.TempDir().
	WorkDir string
	// DefaultTopic receives outcomes of events that name no topic.
	DefaultTopic string
	// SuccessCode is returned to the transport on every path. Zero means 200.
	SuccessCode int
}

// Result is what an invocation reports to its transport. StatusCode is the
// same whatever the outcome; Status and Err carry the real result.
type Result struct {
	Status     Status
	StatusCode int
	Err        error
}

// NewService constructs an annotation Service.
func NewService(p Params) *Service {
	code := p.SuccessCode
	if code == 0 {
		code = http.StatusOK
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		stores:       p.Stores,
		engine:       p.Engine,
		publisher:    p.Publisher,
		logger:       logger,
		workDir:      p.WorkDir,
		defaultTopic: p.DefaultTopic,
		successCode:  code,
	}
}

// invocation accumulates what is known about the event so the outcome
// message can be built from whatever was captured before a failure.
type invocation struct {
	id  string
	req IngestionRequest
}

func (inv *invocation) outcome(status Status) OutcomeMessage {
	msg := OutcomeMessage{
		UUID:      optional(inv.req.CorrelationID),
		VariantID: optional(inv.req.VariantID),
		FilePath:  optional(inv.req.Destination.Path),
		Status:    status,
	}
	if name := inv.req.Source.FileName; name != "" {
		jsonName := JSONName(name)
		msg.FileName = &jsonName
	}
	return msg
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// HandleEnvelope processes a push delivery. A body that is not a valid
// envelope is handled like an undecodable payload.
func (s *Service) HandleEnvelope(ctx context.Context, body []byte) Result {
	env, err := DecodeEnvelope(body)
	if err != nil {
		s.logger.Warn("invalid push envelope", zap.Error(err))
	}
	return s.Process(ctx, []byte(env.Message.Data))
}

// Process runs the pipeline for one base64-encoded event payload and
// publishes exactly one outcome message. Cancellation of ctx does not stop a
// started invocation.
func (s *Service) Process(ctx context.Context, data []byte) Result {
	ctx = context.WithoutCancel(ctx)
	inv := &invocation{id: uuid.NewString()}

	ctx, span := tracing.Start(ctx, "annotation.process", attribute.String("invocation.id", inv.id))
	err := s.run(ctx, data, inv)
	logger := s.invocationLogger(inv)

	if err == nil {
		if perr := s.publish(ctx, inv, StatusSuccess); perr != nil {
			err = &Error{Kind: KindNotification, Op: "publish outcome", Err: perr}
			logger.Error("annotation succeeded but outcome was not published",
				zap.String("error_kind", string(KindNotification)), zap.Error(err))
			tracing.End(span, err)
			return Result{Status: StatusFailure, StatusCode: s.successCode, Err: err}
		}
		logger.Info("annotation completed")
		tracing.End(span, nil)
		return Result{Status: StatusSuccess, StatusCode: s.successCode}
	}

	logger.Error("annotation failed", zap.String("error_kind", string(KindOf(err))), zap.Error(err))
	if perr := s.publish(ctx, inv, StatusFailure); perr != nil {
		logger.Error("failure notice was not published", zap.Error(perr))
	}
	tracing.End(span, err)
	return Result{Status: StatusFailure, StatusCode: s.successCode, Err: err}
}

func (s *Service) invocationLogger(inv *invocation) *zap.Logger {
	return s.logger.With(
		zap.String("invocation_id", inv.id),
		zap.String("correlation_id", inv.req.CorrelationID),
		zap.String("variant_id", inv.req.VariantID),
		zap.String("project_id", inv.req.TenantID),
	)
}

func (s *Service) run(ctx context.Context, data []byte, inv *invocation) error {
	req, err := DecodePayload(data)
	if err != nil {
		return err
	}
	inv.req = req
	logger := s.invocationLogger(inv)

	if req.Source.FileName == "" {
		return missing("bucket.source.file")
	}
	if req.Destination.BucketName == "" {
		return missing("bucket.destination.bucketName")
	}
	if req.Destination.Path == "" {
		return missing("bucket.destination.path")
	}

	dst, err := s.stores.Open(ctx, objectstore.Credentials{AccessToken: req.Destination.AccessToken})
	if err != nil {
		return &Error{Kind: KindCredentials, Op: "open destination store", Err: err}
	}
	defer dst.Close()

	sourceKey := objectKey(req.Source.Path, req.Source.FileName)
	metadata := map[string]string{
		"correlation-id": req.CorrelationID,
		"source-object":  sourceKey,
	}

	img := ocr.Image{Name: req.Source.FileName}
	switch s.engine.Source() {
	case ocr.SourceURL:
		if req.Source.ReadURL == "" {
			return missing("bucket.source.readSignedUrl")
		}
		img.URL = req.Source.ReadURL
	default:
		holding, err := os.MkdirTemp(s.workDir, "annotate-"+holdingName(req.CorrelationID)+"-*")
		if err != nil {
			return &Error{Kind: KindFetch, Op: "create holding directory", Err: err}
		}
		defer func() {
			if err := os.RemoveAll(holding); err != nil {
				logger.Warn("holding directory cleanup failed", zap.String("dir", holding), zap.Error(err))
			}
		}()

		content, err := s.fetch(ctx, req, sourceKey, holding)
		if err != nil {
			return err
		}
		img.Content = content
		sum := blake3.Sum256(content)
		metadata["source-blake3"] = hex.EncodeToString(sum[:])
	}

	result, err := s.annotate(ctx, img)
	if err != nil {
		return err
	}

	destKey := objectKey(req.Destination.Path, JSONName(req.Source.FileName))
	if err := s.persist(ctx, dst, req.Destination.BucketName, destKey, result, metadata); err != nil {
		return err
	}
	if err := s.verify(ctx, dst, req.Destination.BucketName, destKey); err != nil {
		return err
	}

	logger.Debug("annotation stored", zap.String("bucket", req.Destination.BucketName), zap.String("key", destKey))
	return nil
}

// fetch downloads the source image into holding and returns its bytes once
// the written length matches the size the store declared.
func (s *Service) fetch(ctx context.Context, req IngestionRequest, key, holding string) (_ []byte, err error) {
	ctx, span := tracing.Start(ctx, "annotation.fetch", attribute.String("object.key", key))
	defer func() { tracing.End(span, err) }()

	if req.Source.BucketName == "" {
		return nil, missing("bucket.source.bucketName")
	}
	if req.Source.Path == "" {
		return nil, missing("bucket.source.path")
	}

	src, err := s.stores.Open(ctx, objectstore.Credentials{AccessToken: req.Source.AccessToken})
	if err != nil {
		return nil, &Error{Kind: KindCredentials, Op: "open source store", Err: err}
	}
	defer src.Close()

	local := filepath.Join(holding, path.Base(req.Source.FileName))
	declared, err := src.Fetch(ctx, req.Source.BucketName, key, local)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "fetch source", Err: err}
	}

	info, err := os.Stat(local)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "stat download", Err: err}
	}
	if info.Size() != declared {
		return nil, &Error{Kind: KindSizeMismatch, Op: "check download", Err: &SizeMismatchError{Declared: declared, Written: info.Size()}}
	}

	content, err := os.ReadFile(local)
	if err != nil {
		return nil, &Error{Kind: KindFetch, Op: "read download", Err: err}
	}
	return content, nil
}

func (s *Service) annotate(ctx context.Context, img ocr.Image) (_ json.RawMessage, err error) {
	ctx, span := tracing.Start(ctx, "annotation.annotate", attribute.String("engine", s.engine.Name()))
	defer func() { tracing.End(span, err) }()

	result, err := s.engine.Annotate(ctx, img)
	if err != nil {
		return nil, &Error{Kind: KindAnnotation, Op: "annotate " + s.engine.Name(), Err: err}
	}
	if !json.Valid(result) {
		return nil, &Error{Kind: KindAnnotation, Op: "annotate " + s.engine.Name(), Err: errors.New("engine returned invalid json")}
	}
	return result, nil
}

func (s *Service) persist(ctx context.Context, dst objectstore.Client, bucket, key string, result json.RawMessage, metadata map[string]string) (err error) {
	ctx, span := tracing.Start(ctx, "annotation.persist", attribute.String("object.key", key))
	defer func() { tracing.End(span, err) }()

	if err := dst.Put(ctx, bucket, key, result, jsonContentType, metadata); err != nil {
		return &Error{Kind: KindUpload, Op: "upload annotation", Err: err}
	}
	return nil
}

func (s *Service) verify(ctx context.Context, dst objectstore.Client, bucket, key string) (err error) {
	ctx, span := tracing.Start(ctx, "annotation.verify", attribute.String("object.key", key))
	defer func() { tracing.End(span, err) }()

	ok, err := dst.Exists(ctx, bucket, key)
	if err != nil {
		return &Error{Kind: KindVerification, Op: "check upload", Err: err}
	}
	if !ok {
		return &Error{Kind: KindVerification, Op: "check upload", Err: fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectMissing)}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, inv *invocation, status Status) (err error) {
	ctx, span := tracing.Start(ctx, "annotation.publish", attribute.String("status", string(status)))
	defer func() { tracing.End(span, err) }()

	topic := inv.req.Notification.TopicName
	if topic == "" {
		topic = s.defaultTopic
	}

	body, err := json.Marshal(outcomeEnvelope{Message: inv.outcome(status)})
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	attrs := map[string]string{tenantAttributeKey: inv.req.TenantID}
	if err := s.publisher.Publish(ctx, topic, body, attrs); err != nil {
		if topic == "" {
			return fmt.Errorf("%w: %w", &MissingFieldError{Field: "response.topic"}, err)
		}
		return err
	}
	return nil
}
