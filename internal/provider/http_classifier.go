package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClassifierProvider calls a remote smear classification service that
// returns disease and white-cell-type probability maps.
type HTTPClassifierProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClassifierProvider creates a classifier client for the given endpoint.
func NewHTTPClassifierProvider(endpoint string) *HTTPClassifierProvider {
	return &HTTPClassifierProvider{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type classifyRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename,omitempty"`
}

type classifyResponse struct {
	DiseaseProbabilities  map[string]float64 `json:"disease_probabilities"`
	CellTypeProbabilities map[string]float64 `json:"cell_type_probabilities"`
}

func (p *HTTPClassifierProvider) Classify(ctx context.Context, image []byte, filename string) (map[string]float64, map[string]float64, error) {
	reqBody := classifyRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Filename: filename,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/classify", bytes.NewBuffer(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("classifier returned status: %d", resp.StatusCode)
	}

	var classifyResp classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&classifyResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode classify response: %w", err)
	}
	return classifyResp.DiseaseProbabilities, classifyResp.CellTypeProbabilities, nil
}
