package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"ResetTracker/internal/ports"
)

// Tesseract runs the tesseract CLI, feeding the image on stdin and reading text from stdout.
type Tesseract struct {
	Binary   string
	Language string
}

var _ ports.TextRecognizer = (*Tesseract)(nil)

// NewTesseract defaults to "tesseract" on PATH and English.
func NewTesseract(binary, language string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Binary: binary, Language: language}
}

// Recognize returns the text tesseract finds in image. The process is killed when ctx ends.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty image")
	}

	cmd := exec.CommandContext(ctx, t.Binary, "stdin", "stdout", "-l", t.Language)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", fmt.Errorf("tesseract timeout: %w", ctx.Err())
	}
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w (stderr=%s)", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
