package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// VisionClient calls Google Cloud Vision for logo and document text
// detection in a single request.
type VisionClient struct {
	svc      *vision.Service
	maxLogos int64
}

// NewVisionClient authenticates with a credentials file when one is
// configured, else with the API key from cfg.APIKeyEnv, else with
// application default credentials.
func NewVisionClient(ctx context.Context, cfg Config, extra ...option.ClientOption) (*VisionClient, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKeyEnv != "" && os.Getenv(cfg.APIKeyEnv) != "":
		opts = append(opts, option.WithAPIKey(os.Getenv(cfg.APIKeyEnv)))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, &InitError{Provider: ProviderVision, Err: err}
	}

	maxLogos := cfg.MaxLogos
	if maxLogos <= 0 {
		maxLogos = DefaultMaxLogos
	}
	return &VisionClient{svc: svc, maxLogos: int64(maxLogos)}, nil
}

func (c *VisionClient) Annotate(ctx context.Context, image []byte) (*Result, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{
				{Type: "LOGO_DETECTION", MaxResults: c.maxLogos},
				{Type: "DOCUMENT_TEXT_DETECTION"},
			},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return &Result{}, nil
	}
	return convertVision(resp.Responses[0])
}

func convertVision(r *vision.AnnotateImageResponse) (*Result, error) {
	if r == nil {
		return &Result{}, nil
	}
	if r.Error != nil && r.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate: %s (code %d)", r.Error.Message, r.Error.Code)
	}

	res := &Result{}
	for _, a := range r.LogoAnnotations {
		if a == nil || a.Description == "" {
			continue
		}
		logo := Logo{Label: a.Description, Score: a.Score}
		if a.BoundingPoly != nil {
			for _, v := range a.BoundingPoly.Vertices {
				if v != nil {
					logo.BoundingBox = append(logo.BoundingBox, Vertex{X: v.X, Y: v.Y})
				}
			}
		}
		res.Logos = append(res.Logos, logo)
	}

	switch {
	case r.FullTextAnnotation != nil:
		res.FullText = r.FullTextAnnotation.Text
	case len(r.TextAnnotations) > 0 && r.TextAnnotations[0] != nil:
		// The first text annotation spans the whole image.
		res.FullText = r.TextAnnotations[0].Description
	}
	return res, nil
}
