package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/globeship/shipment-service/internal/model"
)

// Status is a status code as reported by the NIMBUS domestic carrier API.
// The carrier's vocabulary is coarser than ours; codes without an internal
// equivalent are ignored by the sync worker.
type Status string

const (
	StatusPickupScheduled Status = "PICKUP_SCHEDULED"
	StatusPickedUp        Status = "PICKED_UP"
	StatusAtWarehouse     Status = "RECEIVED_AT_WAREHOUSE"
	StatusCancelled       Status = "CANCELLED"
)

// MapStatus translates a carrier code into the internal enumeration. ok is
// false for codes that do not advance the internal state machine.
func MapStatus(s Status) (model.Status, bool) {
	switch s {
	case StatusAtWarehouse:
		return model.StatusAtWarehouse, true
	case StatusCancelled:
		return model.StatusCancelled, true
	default:
		return "", false
	}
}

type Client interface {
	TrackDomestic(ctx context.Context, awb string) (Status, error)
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) TrackDomestic(ctx context.Context, awb string) (Status, error) {
	endpoint := fmt.Sprintf("%s/v1/track/%s", c.baseURL, url.PathEscape(awb))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("carrier request for awb %s failed: %w", awb, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("carrier returned %d for awb %s", resp.StatusCode, awb)
	}

	var payload struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode carrier response for awb %s: %w", awb, err)
	}
	return payload.Status, nil
}
