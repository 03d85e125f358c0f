package domain

import (
	"fmt"
	"strings"
)

// ImageAspectRatios lists the aspect ratios accepted for still images.
var ImageAspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// ImageRequest describes one still image generation.
type ImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// Validate checks that the request can be sent.
func (r ImageRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyPrompt)
	}
	if r.AspectRatio == "" {
		return nil
	}
	for _, a := range ImageAspectRatios {
		if a == r.AspectRatio {
			return nil
		}
	}
	return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidAspectRatio, r.AspectRatio)
}

// Image is a generated still image.
type Image struct {
	Bytes    []byte
	MIMEType string
}
