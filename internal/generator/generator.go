package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

// ComposerClient produces a short personalized fragment for a greeting. The
// HTTP implementation talks to the composer service; tests stub it.
type ComposerClient interface {
	Compose(ctx context.Context, description string, relationship model.Relationship) (string, error)
}

type composeRequest struct {
	Description  string `json:"description"`
	Relationship string `json:"relationship"`
}

type composeResponse struct {
	Text string `json:"text"`
}

// HTTPComposerClient calls the composer service over HTTP.
type HTTPComposerClient struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewHTTPComposerClient(url string, timeout time.Duration) *HTTPComposerClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPComposerClient{
		url:     url,
		timeout: timeout,
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

func (c *HTTPComposerClient) Compose(ctx context.Context, description string, relationship model.Relationship) (string, error) {
	body, err := json.Marshal(composeRequest{
		Description:  description,
		Relationship: string(relationship),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal compose request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url + "/api/v1/compose")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("compose request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.Body())
	}

	var cr composeResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil {
		return "", fmt.Errorf("failed to unmarshal compose response: %w", err)
	}

	return cr.Text, nil
}

// Generator renders greeting bodies from relationship-keyed template pools,
// enriched by the composer service when one is configured. Generate never
// fails: when the composer is unreachable the fragment falls back to a
// deterministic phrase built from the description.
type Generator struct {
	composer ComposerClient
	rnd      *rand.Rand
}

func New(composer ComposerClient) *Generator {
	return &Generator{
		composer: composer,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Generator) Generate(ctx context.Context, sender, recipient string, relationship model.Relationship, description string) string {
	personalized := g.personalize(ctx, description, relationship)
	tpl := pickTemplate(relationship, g.rnd)
	return renderTemplate(tpl, sender, recipient, personalized)
}

func (g *Generator) personalize(ctx context.Context, description string, relationship model.Relationship) string {
	if g.composer != nil {
		text, err := g.composer.Compose(ctx, description, relationship)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			logger.Warn("composer unavailable, using fallback fragment", "error", err)
		}
	}
	return fallbackFragment(description)
}

func fallbackFragment(description string) string {
	return fmt.Sprintf("I love how %s.", description)
}
