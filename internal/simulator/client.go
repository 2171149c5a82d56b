package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/models"
)

// HTTP posts windows to a running classification server
type HTTP struct {
	c       *http.Client
	baseURL string
}

// NewHTTP creates a client for the server at baseURL
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{
		c:       &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ClassifyWindow sends one window of fused samples to POST /classify_window
func (h *HTTP) ClassifyWindow(ctx context.Context, samples []models.Sample) (ml.Prediction, error) {
	b, err := json.Marshal(models.NewClassifyRequest(samples))
	if err != nil {
		return ml.Prediction{}, fmt.Errorf("classify marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/classify_window", bytes.NewReader(b))
	if err != nil {
		return ml.Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return ml.Prediction{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		return ml.Prediction{}, fmt.Errorf("classify %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out ml.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ml.Prediction{}, fmt.Errorf("classify decode: %w", err)
	}
	return out, nil
}
