// Package vateud fetches the vACC facility roster from the VATEUD core API.
package vateud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultRosterURL is the facility roster endpoint
const DefaultRosterURL = "https://core.vateud.net/api/facility/roster"

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

var ErrUnsuccessful = errors.New("vateud api reported failure")

// APIError is returned for non-200 responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vateud api returned status %d", e.StatusCode)
}

// MemberKind tells why a CID is on the roster
type MemberKind string

const (
	KindStaff      MemberKind = "staff"
	KindController MemberKind = "controller"
)

// Member is one CID on the roster
type Member struct {
	CID  string
	Kind MemberKind
}

// Roster is the decoded facility roster
type Roster struct {
	Staff       []string
	Controllers []string
}

// Members returns every roster CID once. Staff take precedence.
func (r *Roster) Members() []Member {
	seen := make(map[string]struct{}, len(r.Staff)+len(r.Controllers))
	out := make([]Member, 0, len(r.Staff)+len(r.Controllers))
	for _, cid := range r.Staff {
		if _, ok := seen[cid]; ok {
			continue
		}
		seen[cid] = struct{}{}
		out = append(out, Member{CID: cid, Kind: KindStaff})
	}
	for _, cid := range r.Controllers {
		if _, ok := seen[cid]; ok {
			continue
		}
		seen[cid] = struct{}{}
		out = append(out, Member{CID: cid, Kind: KindController})
	}
	return out
}

// cid accepts a JSON number or string. null and "" decode to an empty cid,
// which the roster skips.
type cid string

func (c *cid) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = cid(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("cid %s is not an integer", n)
	}
	*c = cid(n.String())
	return nil
}

type staffEntry struct {
	CID cid `json:"cid"`
}

// staffItem is either a single staff object or a list of them
type staffItem []staffEntry

func (s *staffItem) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var list []staffEntry
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var one staffEntry
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = staffItem{one}
	return nil
}

type rosterResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Staff       []staffItem `json:"staff"`
		Controllers []cid       `json:"controllers"`
	} `json:"data"`
}

// Client calls the VATEUD API
type Client struct {
	http   *http.Client
	url    string
	apiKey string
}

// NewClient creates a roster client
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultRosterURL
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		url:    url,
		apiKey: apiKey,
	}
}

// Roster downloads and decodes the facility roster
func (c *Client) Roster(ctx context.Context) (*Roster, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	slog.Info("Requesting VATEUD roster")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting roster: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	slog.Info("VATEUD roster response", "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		slog.Error("VATEUD API error response", "status", resp.StatusCode, "body", string(snippet))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var r rosterResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decoding roster: %w", err)
	}
	if !r.Success {
		return nil, ErrUnsuccessful
	}

	roster := &Roster{}
	for _, item := range r.Data.Staff {
		for _, e := range item {
			if e.CID != "" {
				roster.Staff = append(roster.Staff, string(e.CID))
			}
		}
	}
	for _, id := range r.Data.Controllers {
		if id != "" {
			roster.Controllers = append(roster.Controllers, string(id))
		}
	}

	slog.Info("VATEUD roster decoded", "staff", len(roster.Staff), "controllers", len(roster.Controllers))
	return roster, nil
}
