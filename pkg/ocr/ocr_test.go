package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
)

func TestNewUnknownEngine(t *testing.T) {
	_, err := New(context.Background(), Config{Engine: "abacus"})
	assert.ErrorContains(t, err, "unsupported annotation engine")
	assert.Contains(t, Available(), "vision")
	assert.Contains(t, Available(), "http")
}

func TestRegister(t *testing.T) {
	Register("static", func(context.Context, Config) (Engine, error) {
		return &HTTPEngine{url: "http://unused", client: http.DefaultClient}, nil
	})

	e, err := New(context.Background(), Config{Engine: "static"})
	require.NoError(t, err)
	assert.Equal(t, SourceURL, e.Source())
}

func TestHTTPEngineRequiresURL(t *testing.T) {
	_, err := New(context.Background(), Config{Engine: "http"})
	assert.Error(t, err)
}

func TestHTTPEngineAnnotate(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"ABC"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	e, err := NewHTTPEngine(Config{APIURL: srv.URL, DocumentType: "inv_stm", DocumentCode: "acme", APITimeout: time.Second})
	require.NoError(t, err)
	defer e.Close()

	out, err := e.Annotate(context.Background(), Image{URL: "https://signed.example/invoice.jpg"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"ABC"}`, string(out))

	require.Len(t, got.Images, 1)
	assert.Equal(t, "https://signed.example/invoice.jpg", got.Images[0].ImageURL)
	assert.True(t, got.SkipPerspectiveError)
	assert.False(t, got.ApplyPerspectiveCorrection)
	assert.Equal(t, "inv_stm", got.DocumentInfo.Type)
	assert.Equal(t, "acme", got.DocumentInfo.InvStmCode)
}

func TestHTTPEngineRejectsBadResponses(t *testing.T) {
	code := http.StatusOK
	body := "not json"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	defer srv.Close()

	e, err := NewHTTPEngine(Config{APIURL: srv.URL, APITimeout: time.Second})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Annotate(ctx, Image{URL: "https://signed.example/a.jpg"})
	assert.ErrorContains(t, err, "invalid json")

	code, body = http.StatusBadGateway, `{"error":"upstream"}`
	_, err = e.Annotate(ctx, Image{URL: "https://signed.example/a.jpg"})
	assert.ErrorContains(t, err, "status 502")

	_, err = e.Annotate(ctx, Image{})
	assert.Error(t, err)
}

type fakeAnnotator struct {
	visionpb.UnimplementedImageAnnotatorServer
	resp *visionpb.AnnotateImageResponse
	got  *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.got = req
	return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{f.resp}}, nil
}

func startVision(t *testing.T, fake *fakeAnnotator) *VisionEngine {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gsrv := grpc.NewServer()
	visionpb.RegisterImageAnnotatorServer(gsrv, fake)
	go gsrv.Serve(lis) //nolint:errcheck
	t.Cleanup(gsrv.Stop)

	e, err := NewVisionEngine(context.Background(), Config{VisionEndpoint: lis.Addr().String()},
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestVisionEngineAnnotate(t *testing.T) {
	fake := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{
		TextAnnotations: []*visionpb.EntityAnnotation{{Description: "ABC", Locale: "en"}},
	}}
	e := startVision(t, fake)

	out, err := e.Annotate(context.Background(), Image{Name: "invoice.jpg", Content: []byte{0xff, 0xd8}})
	require.NoError(t, err)

	var decoded visionpb.AnnotateImageResponse
	require.NoError(t, protojson.Unmarshal(out, &decoded))
	require.Len(t, decoded.GetTextAnnotations(), 1)
	assert.Equal(t, "ABC", decoded.GetTextAnnotations()[0].GetDescription())

	require.Len(t, fake.got.GetRequests(), 1)
	req := fake.got.GetRequests()[0]
	assert.Equal(t, []byte{0xff, 0xd8}, req.GetImage().GetContent())
	assert.Equal(t, visionpb.Feature_TEXT_DETECTION, req.GetFeatures()[0].GetType())
}

func TestVisionEngineSurfacesResponseError(t *testing.T) {
	fake := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{
		Error: &status.Status{Code: 3, Message: "bad image data"},
	}}
	e := startVision(t, fake)

	_, err := e.Annotate(context.Background(), Image{Content: []byte("x")})
	assert.ErrorContains(t, err, "bad image data")

	_, err = e.Annotate(context.Background(), Image{})
	assert.ErrorContains(t, err, "empty image content")
}
