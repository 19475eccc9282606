// Package vatsim reads the VATSIM v3 network data feed.
package vatsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultDataURL is the public v3 feed
const DefaultDataURL = "https://data.vatsim.net/v3/vatsim-data.json"

var (
	ErrUnavailable   = errors.New("vatsim feed unavailable")
	ErrEmptyResponse = errors.New("vatsim feed returned an empty response")
	ErrDecode        = errors.New("vatsim feed returned invalid JSON")
	ErrNoControllers = errors.New("vatsim feed has no controllers list")
)

// Controller is one ATC connection on the network
type Controller struct {
	CID       int       `json:"cid"`
	Name      string    `json:"name"`
	Callsign  string    `json:"callsign"`
	Frequency string    `json:"frequency"`
	Facility  int       `json:"facility"`
	Rating    int       `json:"rating"`
	Server    string    `json:"server"`
	LogonTime time.Time `json:"logon_time"`
}

// CIDString returns the CID in its decimal form
func (c Controller) CIDString() string {
	return strconv.Itoa(c.CID)
}

type feed struct {
	Controllers *[]Controller `json:"controllers"`
}

// Client fetches the data feed. Concurrent calls share one request.
type Client struct {
	http  *http.Client
	url   string
	group singleflight.Group
}

// NewClient creates a feed client
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultDataURL
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		url:  url,
	}
}

// Controllers returns every controller currently connected
func (c *Client) Controllers(ctx context.Context) ([]Controller, error) {
	v, err, _ := c.group.Do("controllers", func() (any, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Controller), nil
}

func (c *Client) fetch(ctx context.Context) ([]Controller, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var f feed
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if f.Controllers == nil {
		return nil, ErrNoControllers
	}
	return *f.Controllers, nil
}

// Online indexes controllers by callsign
func Online(controllers []Controller) map[string]Controller {
	out := make(map[string]Controller, len(controllers))
	for _, ctrl := range controllers {
		out[ctrl.Callsign] = ctrl
	}
	return out
}

// OnlineCIDs returns the CIDs of controllers on the given callsigns
func OnlineCIDs(controllers []Controller, watched func(string) bool) map[string]string {
	out := make(map[string]string)
	for _, ctrl := range controllers {
		if watched(ctrl.Callsign) {
			out[ctrl.CIDString()] = ctrl.Callsign
		}
	}
	return out
}
