// Package ocr wraps the image annotation services that turn an uploaded
// earnings-calendar screenshot into full text and detected logos.
package ocr

import (
	"context"
	"fmt"
)

// Providers.
const (
	ProviderVision = "vision"
	ProviderGemini = "gemini"
)

// DefaultMaxLogos is how many logo annotations are requested per image.
const DefaultMaxLogos = 20

// Vertex is a pixel coordinate of a bounding polygon.
type Vertex struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// Logo is a detected brand mark.
type Logo struct {
	Label       string   `json:"label"`
	Score       float64  `json:"score"`
	BoundingBox []Vertex `json:"boundingBox,omitempty"`
}

// Result is everything recognized in one image. Missing text or logos are
// empty values, not errors.
type Result struct {
	Logos    []Logo
	FullText string
}

// Client annotates an image.
type Client interface {
	Annotate(ctx context.Context, image []byte) (*Result, error)
}

// Config selects and configures a provider. Secrets are read from the
// named environment variables.
type Config struct {
	Provider          string
	APIKeyEnv         string
	CredentialsFile   string
	Endpoint          string
	GeminiModel       string
	GeminiAPIKeyEnv   string
	MaxLogos          int
	RequestsPerSecond float64
}

// InitError reports that a provider client could not be constructed.
type InitError struct {
	Provider string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s OCR client: %v", e.Provider, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// New builds the configured client, rate limited when
// RequestsPerSecond is positive.
func New(ctx context.Context, cfg Config) (Client, error) {
	var (
		c   Client
		err error
	)
	switch cfg.Provider {
	case "", ProviderVision:
		c, err = NewVisionClient(ctx, cfg)
	case ProviderGemini:
		c, err = NewGeminiClient(ctx, cfg)
	default:
		return nil, &InitError{Provider: cfg.Provider, Err: fmt.Errorf("unknown provider %q", cfg.Provider)}
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond > 0 {
		c = NewLimited(c, cfg.RequestsPerSecond)
	}
	return c, nil
}

type unavailable struct {
	err error
}

// Unavailable returns a client whose every call fails with err. It lets a
// server start without OCR credentials and report the cause per request.
func Unavailable(err error) Client {
	return unavailable{err: err}
}

func (u unavailable) Annotate(context.Context, []byte) (*Result, error) {
	return nil, u.err
}
