// Package ocr extracts text from uploaded images.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// NoTextReply is returned when an image contains no recognisable text.
const NoTextReply = "🧠 No text detected in image."

// ErrDisabled is returned when OCR is switched off in configuration.
var ErrDisabled = errors.New("ocr is disabled")

// Engine turns image bytes into raw text.
type Engine interface {
	ExtractText(ctx context.Context, image io.Reader) (string, error)
}

// TesseractEngine runs the tesseract executable once per image.
type TesseractEngine struct {
	command  string
	language string
}

// NewTesseractEngine uses command (default "tesseract") with the given language (e.g. "eng").
func NewTesseractEngine(command, language string) *TesseractEngine {
	if command == "" {
		command = "tesseract"
	}
	return &TesseractEngine{command: command, language: language}
}

// ExtractText writes image to a temporary file and reads tesseract's stdout.
func (e *TesseractEngine) ExtractText(ctx context.Context, image io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "heartchat-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("buffer image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("buffer image: %w", err)
	}

	args := []string{tmp.Name(), "stdout"}
	if e.language != "" {
		args = append(args, "-l", e.language)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", e.command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Service wraps an Engine with the reply conventions of the image endpoint.
type Service struct {
	engine Engine
	logger *zap.Logger
}

// NewService creates the OCR service. A nil engine disables OCR.
func NewService(engine Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, logger: logger.Named("ocr")}
}

// Enabled reports whether an engine is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.engine != nil
}

// Read returns the trimmed text found in image, or NoTextReply when there is none.
func (s *Service) Read(ctx context.Context, image io.Reader) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	raw, err := s.engine.ExtractText(ctx, image)
	if err != nil {
		s.logger.Error("error processing image", zap.Error(err))
		return "", err
	}
	text := strings.TrimSpace(raw)
	s.logger.Info("image OCR result", zap.Int("chars", len(text)))
	if text == "" {
		return NoTextReply, nil
	}
	return text, nil
}
