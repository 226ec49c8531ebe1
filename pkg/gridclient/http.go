package gridclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docgrid/docgrid/internal/tabular"
)

// HTTPTransport fetches tabular pages from a docgrid server over the
// DataTables wire shape.
type HTTPTransport struct {
	Base       string // server base URL, no trailing slash
	Collection string
	Client     *http.Client
}

func (t *HTTPTransport) Fetch(ctx context.Context, req tabular.Request) (*tabular.Response, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	u := fmt.Sprintf("%s/api/%s/table?%s", t.Base, url.PathEscape(t.Collection), req.Values().Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tabular request: %w", err)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tabular request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(httpResp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return nil, fmt.Errorf("tabular request rejected (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("tabular request rejected with status %d", httpResp.StatusCode)
	}

	var resp tabular.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode tabular response: %w", err)
	}
	return &resp, nil
}
