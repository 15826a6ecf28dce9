package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HTTPEngine posts a signed image URL to a document OCR API and returns the
// API's JSON body untouched.
type HTTPEngine struct {
	url          string
	documentType string
	documentCode string
	client       *http.Client
}

type apiRequest struct {
	Images                     []apiImage      `json:"images"`
	SkipPerspectiveError       bool            `json:"skipPerspectiveError"`
	ApplyPerspectiveCorrection bool            `json:"applyPerspectiveCorrection"`
	DocumentInfo               apiDocumentInfo `json:"documentInfo"`
}

type apiImage struct {
	ImageURL string `json:"imageUrl"`
}

type apiDocumentInfo struct {
	Type       string `json:"type"`
	InvStmCode string `json:"invStmCode,omitempty"`
}

func NewHTTPEngine(cfg Config) (*HTTPEngine, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("ocr api url is required")
	}
	return &HTTPEngine{
		url:          cfg.APIURL,
		documentType: cfg.DocumentType,
		documentCode: cfg.DocumentCode,
		client:       &http.Client{Timeout: cfg.APITimeout},
	}, nil
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Source() Source { return SourceURL }

func (e *HTTPEngine) Annotate(ctx context.Context, img Image) (json.RawMessage, error) {
	if img.URL == "" {
		return nil, errors.New("ocr api: image url is required")
	}

	body, err := json.Marshal(apiRequest{
		Images:               []apiImage{{ImageURL: img.URL}},
		SkipPerspectiveError: true,
		DocumentInfo: apiDocumentInfo{
			Type:       e.documentType,
			InvStmCode: e.documentCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ocr api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ocr response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ocr api returned status %d", resp.StatusCode)
	}
	if !json.Valid(data) {
		return nil, errors.New("ocr api returned invalid json")
	}
	return data, nil
}

func (e *HTTPEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
