package domain

import (
	"fmt"
	"strings"
)

// AspectRatio is the frame shape requested for a generated video.
type AspectRatio string

// Supported aspect ratios
const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// IsValid reports whether the aspect ratio is supported by the backend.
func (a AspectRatio) IsValid() bool {
	return a == AspectLandscape || a == AspectPortrait
}

// SourceImage is an optional still used as the first frame of a video.
type SourceImage struct {
	Bytes    []byte `json:"bytes"`
	MIMEType string `json:"mime_type"`
}

// VideoQuality selects between the fast and high-quality video models.
type VideoQuality string

// Video quality values
const (
	QualityFast VideoQuality = "fast"
	QualityHigh VideoQuality = "high"
)

// Task returns the model task for the quality level. Anything other than
// QualityHigh uses the fast model.
func (q VideoQuality) Task() ModelTask {
	if q == QualityHigh {
		return TaskQualityVideo
	}
	return TaskFastVideo
}

// VideoRequest describes one video synthesis job.
type VideoRequest struct {
	Prompt      string       `json:"prompt"`
	SourceImage *SourceImage `json:"source_image,omitempty"`
	AspectRatio AspectRatio  `json:"aspect_ratio"`
	Quality     VideoQuality `json:"quality,omitempty"`
}

// Validate checks that the request can be submitted.
func (r VideoRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyPrompt)
	}
	if !r.AspectRatio.IsValid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidAspectRatio, r.AspectRatio)
	}
	if r.SourceImage != nil && (len(r.SourceImage.Bytes) == 0 || r.SourceImage.MIMEType == "") {
		return fmt.Errorf("%w: source image requires bytes and a MIME type", ErrValidation)
	}
	return nil
}

// OperationStatus is the result of checking a long-running video
// operation.
type OperationStatus struct {
	// Done reports whether the remote job has finished.
	Done bool

	// Operation is the handle to use for the next check. It may differ
	// from the handle that was checked.
	Operation string

	// ResultRef locates the generated video once Done is true. It is
	// empty when the job finished without a usable result.
	ResultRef string
}

// Video is a downloaded generation result.
type Video struct {
	Bytes    []byte
	MIMEType string
}
