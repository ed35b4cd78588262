package cloud

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"day-planner/backend/internal/models"
)

// ErrUnavailable signals the adapter is disabled (no credential) or
// short-circuited; callers log it and move on.
var ErrUnavailable = errors.New("cloud storage unavailable")

const (
	breakerMaxFailures = 5
	breakerCooldown    = 30 * time.Second
)

// Client talks to a JSONBin-style key-value blob store. The whole task
// collection is stored as one JSON document per user, keyed by a
// stable hash of the identity email.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *CircuitBreaker
}

type binEnvelope struct {
	Record models.CloudSnapshot `json:"record"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		breaker: NewCircuitBreaker(breakerMaxFailures, breakerCooldown),
	}
}

// Available reports whether the adapter is configured at all. Without
// a credential every operation is a silent no-op.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// BinKey derives the per-user bin identifier from the identity email.
// The hash is stable so the same user always maps to the same bin.
func BinKey(email string) string {
	sum := blake2b.Sum256([]byte(email))
	localPart := email
	if at := strings.Index(email, "@"); at >= 0 {
		localPart = email[:at]
	}
	return fmt.Sprintf("tasks-%s-%s", hex.EncodeToString(sum[:6]), localPart)
}

// Save overwrites the remote collection for email. Last write wins; no
// sequencing across overlapping saves.
func (c *Client) Save(ctx context.Context, email string, tasks []models.Task) error {
	if !c.Available() {
		return ErrUnavailable
	}

	snapshot := models.CloudSnapshot{Tasks: tasks, LastUpdated: time.Now().UTC()}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return c.breaker.Execute(func() error {
		url := fmt.Sprintf("%s/%s", c.baseURL, BinKey(email))
		req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req, email)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("save request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("save failed (%d): %s", resp.StatusCode, string(respBody))
		}

		return nil
	})
}

// Load fetches the remote collection for email. A 404 means no remote
// data yet: an empty bin is created and an empty (non-nil) collection
// is returned so sign-in can initialize remote state.
func (c *Client) Load(ctx context.Context, email string) ([]models.Task, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	var tasks []models.Task
	err := c.breaker.Execute(func() error {
		url := fmt.Sprintf("%s/%s/latest", c.baseURL, BinKey(email))
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req, email)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("load request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			if err := c.createBin(ctx, email); err != nil {
				return err
			}
			tasks = []models.Task{}
			return nil
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("load failed (%d): %s", resp.StatusCode, string(respBody))
		}

		var envelope binEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("failed to decode bin: %w", err)
		}

		tasks = envelope.Record.Tasks
		if tasks == nil {
			tasks = []models.Task{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (c *Client) createBin(ctx context.Context, email string) error {
	snapshot := models.CloudSnapshot{Tasks: []models.Task{}, LastUpdated: time.Now().UTC()}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, email)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("create bin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("create bin failed (%d)", resp.StatusCode)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request, email string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Master-Key", c.apiKey)
	req.Header.Set("X-Bin-Name", "Tasks for "+email)
}

// Health probes the remote with a cheap request so the health checker
// can report sync status. An unconfigured adapter is healthy.
func (c *Client) Health(ctx context.Context) error {
	if !c.Available() {
		return nil
	}
	if c.breaker.Open() {
		return ErrCircuitOpen
	}
	return nil
}
