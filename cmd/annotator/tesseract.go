//go:build tesseract

package main

import _ "github.com/your-org/ocrflow/pkg/ocr/tesseract"
