package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-smear-analyzer/pkg/models"
)

// HTTPDetectionProvider calls a remote cell detection service. The image is
// sent base64-encoded; the service answers with detection boxes in pixel
// coordinates.
type HTTPDetectionProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDetectionProvider creates a detection client for the given endpoint.
func NewHTTPDetectionProvider(endpoint string) *HTTPDetectionProvider {
	return &HTTPDetectionProvider{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type detectRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename,omitempty"`
}

type detectResponse struct {
	Boxes []models.DetectionBox `json:"boxes"`
}

func (p *HTTPDetectionProvider) Detect(ctx context.Context, image []byte, filename string) ([]models.DetectionBox, error) {
	reqBody := detectRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Filename: filename,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/detect", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status: %d", resp.StatusCode)
	}

	var detectResp detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&detectResp); err != nil {
		return nil, fmt.Errorf("failed to decode detect response: %w", err)
	}
	return detectResp.Boxes, nil
}
