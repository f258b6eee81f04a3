// internal/platform/client.go
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "nsa-scheduler/internal/common/http"
	"nsa-scheduler/internal/common/metrics"
)

// Client talks to the dealer-platform REST API with basic auth. All methods
// are blocking round trips; callers own retry policy.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *commonhttp.Client
}

func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: commonhttp.NewClient(timeout),
	}
}

// FirstAvailableSlot searches the department for the first open slot on the
// requested dates. An empty DateTime in the response means none was found.
func (c *Client) FirstAvailableSlot(ctx context.Context, departmentUUID string, req *SlotSearchRequest) (*SlotSearchResponse, error) {
	url := fmt.Sprintf("%s/appointment/v2/department/%s/first-available-slot", c.baseURL, departmentUUID)

	var out SlotSearchResponse
	if err := c.postJSON(ctx, "first_available_slot", url, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAppointment books the appointment and returns its identifier.
func (c *Client) CreateAppointment(ctx context.Context, dealerUUID string, req *AppointmentRequest) (*AppointmentResponse, error) {
	url := fmt.Sprintf("%s/appointment/v2/dealer/%s/appointment", c.baseURL, dealerUUID)

	var out AppointmentResponse
	if err := c.postJSON(ctx, "create_appointment", url, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage dispatches one outbound message on behalf of a dealer associate.
func (c *Client) SendMessage(ctx context.Context, departmentUUID, userUUID, customerUUID string, req *MessageRequest) (*MessageResponse, error) {
	url := fmt.Sprintf("%s/communications/department/%s/user/%s/customer/%s/message",
		c.baseURL, departmentUUID, userUUID, customerUUID)

	var out MessageResponse
	if err := c.postJSON(ctx, "send_message", url, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DefaultDealerAssociate looks up the department's default sender identity.
func (c *Client) DefaultDealerAssociate(ctx context.Context, departmentUUID string) (*DealerAssociateResponse, error) {
	url := fmt.Sprintf("%s/manage/v2/department/%s/dealerAssociate/default", c.baseURL, departmentUUID)

	var out DealerAssociateResponse
	if err := c.getJSON(ctx, "default_dealer_associate", url, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SlotSize fetches the dealer's scheduling granularity in minutes, defaulting
// to 15 when the platform omits it.
func (c *Client) SlotSize(ctx context.Context, dealerUUID string) (int, error) {
	url := fmt.Sprintf("%s/appointment/v2/dealer/%s/hoursOfOperation", c.baseURL, dealerUUID)

	var out HoursOfOperationResponse
	if err := c.getJSON(ctx, "hours_of_operation", url, &out); err != nil {
		return 0, err
	}
	if out.SlotSizeInMins == 0 {
		return 15, nil
	}
	return out.SlotSizeInMins, nil
}

func (c *Client) postJSON(ctx context.Context, operation, url string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, operation, out)
}

func (c *Client) getJSON(ctx context.Context, operation, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, operation, out)
}

func (c *Client) do(req *http.Request, operation string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.PlatformRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s failed (status %d): %s", operation, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
