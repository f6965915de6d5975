// Package flex talks to the broker's Flex Web Service: an asynchronous
// request/poll/download protocol for activity extracts.
//
// The protocol is modeled as explicit states (requested, polling, ready,
// failed) with a bounded exponential-backoff poll loop. Exceeding the
// retry budget fails the run cleanly; nothing downstream sees a partial
// extract.
package flex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bearhedge/navledger/internal/logger"
)

// RunState tracks where a fetch is in the protocol.
type RunState string

const (
	StateRequested RunState = "requested"
	StatePolling   RunState = "polling"
	StateReady     RunState = "ready"
	StateFailed    RunState = "failed"
)

var (
	// ErrNotReady is returned by a single poll when the statement is
	// still being generated; the poll loop retries it.
	ErrNotReady = errors.New("statement generation in progress")

	// ErrBudgetExhausted is returned when the poll retry budget runs out
	// before the statement is ready.
	ErrBudgetExhausted = errors.New("poll retry budget exhausted")
)

// generation-in-progress codes per the Flex Web Service documentation.
var retryableCodes = map[string]bool{
	"1019": true, // statement generation in progress
	"1021": true, // statement not yet available
}

// statementResponse is the service's control envelope for both the send
// and the poll legs.
type statementResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Status        string   `xml:"Status"`
	ReferenceCode string   `xml:"ReferenceCode"`
	ErrorCode     string   `xml:"ErrorCode"`
	ErrorMessage  string   `xml:"ErrorMessage"`
}

// Client executes a saved Flex query against the web service.
type Client struct {
	baseURL     string
	token       string
	queryID     string
	httpClient  *http.Client
	pollInitial time.Duration
	maxRetries  uint64
}

// NewClient builds a Client. pollInitial seeds the exponential backoff
// between polls; maxRetries bounds the whole poll loop.
func NewClient(baseURL, token, queryID string, pollInitial time.Duration, maxRetries int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		queryID:     queryID,
		httpClient:  httpClient,
		pollInitial: pollInitial,
		maxRetries:  uint64(maxRetries),
	}
}

// Fetch runs the full request -> poll -> download sequence and returns the
// raw extract body plus the service's reference code for checkpointing.
func (c *Client) Fetch(ctx context.Context) ([]byte, string, error) {
	refCode, err := c.sendRequest(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("flex %s: %w", StateFailed, err)
	}
	logger.L().Info().Str("reference_code", refCode).Str("state", string(StateRequested)).Msg("flex report requested")

	body, err := c.pollStatement(ctx, refCode)
	if err != nil {
		return nil, refCode, fmt.Errorf("flex %s: %w", StateFailed, err)
	}
	logger.L().Info().Str("reference_code", refCode).Str("state", string(StateReady)).Int("bytes", len(body)).Msg("flex report downloaded")
	return body, refCode, nil
}

// sendRequest asks the service to generate the saved query and returns
// the reference code to poll with.
func (c *Client) sendRequest(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/SendRequest", url.Values{
		"t": {c.token},
		"q": {c.queryID},
		"v": {"3"},
	})
	if err != nil {
		return "", err
	}

	var resp statementResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	if !strings.EqualFold(resp.Status, "Success") || resp.ReferenceCode == "" {
		return "", fmt.Errorf("send request rejected: code=%s %s", resp.ErrorCode, resp.ErrorMessage)
	}
	return resp.ReferenceCode, nil
}

// pollStatement downloads the generated statement, retrying
// generation-in-progress responses with exponential backoff until the
// retry budget is spent.
func (c *Client) pollStatement(ctx context.Context, refCode string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.pollInitial
	bo.RandomizationFactor = 0

	var body []byte
	attempts := 0
	operation := func() error {
		attempts++
		logger.L().Debug().Str("reference_code", refCode).Int("attempt", attempts).Str("state", string(StatePolling)).Msg("polling statement")
		b, err := c.getStatement(ctx, refCode)
		if err != nil {
			if errors.Is(err, ErrNotReady) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			return nil, fmt.Errorf("%w after %d attempts", ErrBudgetExhausted, attempts)
		}
		return nil, err
	}
	return body, nil
}

// getStatement performs one poll. A control envelope with a retryable
// error code means the statement is still cooking; anything else that is
// not statement XML is a hard failure.
func (c *Client) getStatement(ctx context.Context, refCode string) ([]byte, error) {
	body, err := c.get(ctx, "/GetStatement", url.Values{
		"t": {c.token},
		"q": {refCode},
		"v": {"3"},
	})
	if err != nil {
		return nil, err
	}

	// The ready payload is FlexQueryResponse; the busy/fail payload is a
	// FlexStatementResponse control envelope.
	trimmed := strings.TrimSpace(string(body))
	if strings.Contains(trimmed, "<FlexStatementResponse") {
		var resp statementResponse
		if err := xml.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode poll response: %w", err)
		}
		if retryableCodes[resp.ErrorCode] {
			return nil, ErrNotReady
		}
		return nil, fmt.Errorf("statement failed: code=%s %s", resp.ErrorCode, resp.ErrorMessage)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}
