//go:build tesseract

package tesseract

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/your-org/ocrflow/pkg/ocr"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func renderText(t *testing.T, text string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 240, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, 50)}
	d.DrawString(text)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEngineAnnotate(t *testing.T) {
	ensureTesseractAvailable(t)

	e, err := ocr.New(context.Background(), ocr.Config{Engine: "tesseract", Languages: []string{"eng"}})
	require.NoError(t, err)
	assert.Equal(t, ocr.SourceContent, e.Source())

	out, err := e.Annotate(context.Background(), ocr.Image{Name: "hello.png", Content: renderText(t, "Hello Invoice")})
	require.NoError(t, err)

	var got annotation
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "tesseract", got.Engine)
	assert.Contains(t, strings.ToLower(got.Text), "hello")
	assert.NotEmpty(t, got.Words)
}

func TestEngineRejectsEmptyImage(t *testing.T) {
	_, err := NewEngine().Annotate(context.Background(), ocr.Image{})
	assert.Error(t, err)
}
