//go:build tesseract

// Package tesseract registers a local Tesseract engine under the name
// "tesseract". It needs libtesseract at build time, so it only compiles with
// the tesseract build tag.
package tesseract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/your-org/ocrflow/pkg/ocr"
)

func init() {
	ocr.Register("tesseract", func(_ context.Context, cfg ocr.Config) (ocr.Engine, error) {
		return NewEngine(cfg.Languages...), nil
	})
}

// Engine runs Tesseract in-process on the fetched image bytes.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

type annotation struct {
	Engine     string   `json:"engine"`
	Languages  []string `json:"languages,omitempty"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Words      []word   `json:"words"`
}

type word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

func NewEngine(languages ...string) *Engine {
	return &Engine{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Source() ocr.Source { return ocr.SourceContent }

// Annotate recognizes img.Content and returns the text with word boxes.
func (e *Engine) Annotate(ctx context.Context, img ocr.Image) (json.RawMessage, error) {
	if len(img.Content) == 0 {
		return nil, errors.New("tesseract: empty image content")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img.Content); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	words, avg := extractWords(c)
	out, err := json.Marshal(annotation{
		Engine:     e.Name(),
		Languages:  e.languages,
		Text:       strings.TrimSpace(text),
		Confidence: avg,
		Words:      words,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tesseract result: %w", err)
	}
	return out, nil
}

func (e *Engine) Close() error { return nil }

func extractWords(c *gosseract.Client) ([]word, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return []word{}, 0
	}
	words := make([]word, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		sum += conf
		words = append(words, word{
			Text:       b.Word,
			Confidence: conf,
			X:          b.Box.Min.X,
			Y:          b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
		})
	}
	return words, sum / float64(len(words))
}
