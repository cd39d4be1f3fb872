// =============================================================================
// TCD Bridge - DHIS2 API Client
// =============================================================================
//
// Thin client over the destination instance's web API. Three operations:
//   - ValidateConnection: GET system/info as a credentials check
//   - FetchMetadata: pull every metadata collection into a metadata.Graph
//   - PushDataValues: POST a payload to dataValueSets
//
// Authentication is either HTTP basic auth or a personal access token sent
// as "Authorization: ApiToken <token>". The token wins when both are set.
//
// The instance returns 200 even for partially failed imports, so the push
// path inspects the import summary status, not only the HTTP code.
//
// =============================================================================

package dhis2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hsalifou/tcdbridge/internal/config"
	"github.com/hsalifou/tcdbridge/internal/metadata"
	"github.com/hsalifou/tcdbridge/internal/payload"
)

const userAgent = "tcdbridge/1.0"

// metadataResources lists every collection to fetch, with the field filter
// each request carries. Order matters only for log readability.
var metadataResources = []struct {
	resource string
	fields   string
}{
	{"organisationUnits", "id,name,code,shortName,parent,level,path,geometry"},
	{"organisationUnitLevels", "id,name,level"},
	{"organisationUnitGroups", "id,name,code,shortName,organisationUnits[id]"},
	{"dataSets", "id,name,code,periodType,dataSetElements[dataElement[id]],organisationUnits[id],categoryCombo[id],attributeCategoryCombo[id]"},
	{"sections", "id,name,sortOrder,dataSet[id],dataElements[id]"},
	{"dataElements", "id,name,code,valueType,categoryCombo[id]"},
	{"dataElementGroups", "id,name,code,shortName,dataElements[id]"},
	{"categoryOptionCombos", "id,name,code,categoryCombo[id],categoryOptions[id]"},
	{"categories", "id,name,code,categoryOptions[id,name]"},
	{"categoryCombos", "id,name,code,categories[id]"},
	{"categoryOptions", "id,name,code"},
}

// SystemInfo is the subset of system/info the bridge cares about.
type SystemInfo struct {
	Version    string `json:"version"`
	SystemName string `json:"systemName"`
	ServerDate string `json:"serverDate"`
}

// ImportSummary is the instance's verdict on a data value push.
type ImportSummary struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	ImportCount struct {
		Imported int `json:"imported"`
		Updated  int `json:"updated"`
		Ignored  int `json:"ignored"`
		Deleted  int `json:"deleted"`
	} `json:"importCount"`
	Conflicts []struct {
		Object string `json:"object"`
		Value  string `json:"value"`
	} `json:"conflicts"`
}

// Client talks to one DHIS2 instance.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger

	username string
	password string
	token    string
}

// NewClient builds a client from the server configuration.
func NewClient(cfg config.ServerConfig, log zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("server base_url is not configured")
	}
	if cfg.APIToken == "" && (cfg.Username == "" || cfg.Password == "") {
		return nil, fmt.Errorf("server needs either api_token or username and password")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/") + "/api",
		httpc:    &http.Client{Timeout: timeout},
		log:      log,
		username: cfg.Username,
		password: cfg.Password,
		token:    cfg.APIToken,
	}, nil
}

// ValidateConnection checks credentials against system/info.
func (c *Client) ValidateConnection(ctx context.Context) (*SystemInfo, error) {
	body, err := c.get(ctx, "system/info", nil)
	if err != nil {
		return nil, err
	}
	var info SystemInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode system info: %w", err)
	}
	c.log.Info().Str("version", info.Version).Str("instance", info.SystemName).Msg("connection validated")
	return &info, nil
}

// FetchMetadata pulls every metadata collection and assembles the graph.
// Each resource response carries the collection under its own name, so one
// unmarshal per response fills the matching graph field.
func (c *Client) FetchMetadata(ctx context.Context) (*metadata.Graph, error) {
	var graph metadata.Graph

	for _, r := range metadataResources {
		c.log.Info().Str("resource", r.resource).Msg("fetching metadata")
		body, err := c.get(ctx, r.resource, url.Values{
			"fields": {r.fields},
			"paging": {"false"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", r.resource, err)
		}
		if err := json.Unmarshal(body, &graph); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", r.resource, err)
		}
	}

	return &graph, nil
}

// PushDataValues posts the payload to dataValueSets and decodes the import
// summary. A summary with status ERROR is returned alongside the error so
// callers can report the conflicts.
func (c *Client) PushDataValues(ctx context.Context, p *payload.Payload) (*ImportSummary, error) {
	if p == nil || len(p.DataValues) == 0 {
		return nil, fmt.Errorf("payload contains no data values")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	c.log.Info().Int("data_values", len(p.DataValues)).Msg("pushing data values")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/dataValueSets", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var summary ImportSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode import summary: %w", err)
	}
	if summary.Status == "ERROR" {
		return &summary, fmt.Errorf("import returned ERROR status: %s", summary.Description)
	}

	c.log.Info().
		Int("imported", summary.ImportCount.Imported).
		Int("updated", summary.ImportCount.Updated).
		Int("ignored", summary.ImportCount.Ignored).
		Msg("data values pushed")
	return &summary, nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

func (c *Client) get(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	u := c.baseURL + "/" + resource
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", resource, err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "ApiToken "+c.token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("authentication failed, check the configured credentials")
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s returned HTTP %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
