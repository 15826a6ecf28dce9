package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"
)

// VisionEngine runs Cloud Vision TEXT_DETECTION on inline image bytes.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionEngine dials Cloud Vision. Credentials come from cfg, falling back
// to application default credentials; extra options are appended last.
func NewVisionEngine(ctx context.Context, cfg Config, extra ...option.ClientOption) (*VisionEngine, error) {
	var opts []option.ClientOption
	if cfg.VisionCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.VisionCredentialsFile))
	}
	if cfg.VisionEndpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.VisionEndpoint))
	}
	opts = append(opts, extra...)

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init vision client: %w", err)
	}
	return &VisionEngine{client: client}, nil
}

func (e *VisionEngine) Name() string { return "vision" }

func (e *VisionEngine) Source() Source { return SourceContent }

// Annotate returns the AnnotateImageResponse for img encoded as JSON.
func (e *VisionEngine) Annotate(ctx context.Context, img Image) (json.RawMessage, error) {
	if len(img.Content) == 0 {
		return nil, errors.New("vision: empty image content")
	}

	resp, err := e.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img.Content},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision text detection: %w", err)
	}
	if n := len(resp.GetResponses()); n != 1 {
		return nil, fmt.Errorf("vision: expected 1 response, got %d", n)
	}

	res := resp.GetResponses()[0]
	if st := res.GetError(); st != nil && st.GetCode() != 0 {
		return nil, fmt.Errorf("vision: code %d: %s", st.GetCode(), st.GetMessage())
	}

	out, err := protojson.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode vision response: %w", err)
	}
	return out, nil
}

func (e *VisionEngine) Close() error {
	return e.client.Close()
}
