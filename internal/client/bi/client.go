package biclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

const serviceName = "bi"

// Client talks to the BI platform's REST API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetWidget fetches one widget of a hosted dashboard. A missing widget is a
// NotFoundError; 5xx and transport failures are transient.
func (c *Client) GetWidget(ctx context.Context, dashboardOid, widgetOid string) (dto.BIWidget, error) {
	var out dto.BIWidget

	endpoint := fmt.Sprintf("%s/api/v1/dashboards/%s/widgets/%s",
		c.baseURL, url.PathEscape(dashboardOid), url.PathEscape(widgetOid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return out, errs.NewExternalServiceError(serviceName, "failed to build request", false, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, errs.NewExternalServiceError(serviceName, "request failed", true, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return out, errs.NewNotFoundError("widget not found on BI platform")
	case resp.StatusCode >= 500:
		return out, errs.NewExternalServiceError(serviceName, fmt.Sprintf("status %d", resp.StatusCode), true, nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.FromContext(ctx).Warn("bi widget lookup rejected",
			"status", resp.StatusCode, "body", string(body))
		return out, errs.NewExternalServiceError(serviceName, fmt.Sprintf("status %d", resp.StatusCode), false, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, errs.NewExternalServiceError(serviceName, "failed to decode widget", false, err)
	}
	return out, nil
}
