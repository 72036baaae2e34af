package dji

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the vendor key service endpoint.
const DefaultBaseURL = "https://dev.dji.com/openapi/v1/flight-records/keychains"

const requestTimeout = 30 * time.Second

// RemoteError is an explicit error payload returned by the key service, as
// opposed to a transport failure. Neither is retried here; retry policy
// belongs to the caller.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("key service error: %s", e.Message)
	}
	return fmt.Sprintf("key service returned status %d", e.StatusCode)
}

// Client fetches per-file decryption key material from the vendor service.
// Concurrent fetches for the same key request are coalesced into a single
// outbound round-trip; the in-flight result is shared by all waiters.
type Client struct {
	baseURL string
	keyring *Keyring
	client  *http.Client
	group   singleflight.Group
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the key service endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

func NewClient(keyring *Keyring, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		keyring: keyring,
		client:  &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type keyRequest struct {
	Version uint8  `json:"version"`
	KeyID   string `json:"keyId"`
	APIKey  string `json:"apiKey"`
}

type keyResponse struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// FetchKey resolves the account API key and exchanges the file's key
// request material for decryption key material. It implements
// logfile.KeySource.
func (c *Client) FetchKey(ctx context.Context, version uint8, keyID [16]byte) ([]byte, error) {
	apiKey, ok := c.keyring.APIKey()
	if !ok {
		return nil, ErrAPIKeyNotConfigured
	}

	id := hex.EncodeToString(keyID[:])

	key, err, _ := c.group.Do(fmt.Sprintf("%d:%s", version, id), func() (any, error) {
		return c.fetchKey(ctx, keyRequest{Version: version, KeyID: id, APIKey: apiKey})
	})
	if err != nil {
		return nil, err
	}
	return key.([]byte), nil
}

func (c *Client) fetchKey(ctx context.Context, request keyRequest) (_ []byte, err error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshaling key request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building key request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting key: %w", err)
	}
	defer func() {
		if cErr := resp.Body.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading key response: %w", err)
	}

	var parsed keyResponse
	if err = json.Unmarshal(payload, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &RemoteError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("parsing key response: %w", err)
	}

	if parsed.Error != "" {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: parsed.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{StatusCode: resp.StatusCode}
	}

	key, err := base64.StdEncoding.DecodeString(parsed.Key)
	if err != nil {
		return nil, fmt.Errorf("decoding key material: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("unexpected key material length %d", len(key))
	}
	return key, nil
}
