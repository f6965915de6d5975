package flex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const readyStatement = `<FlexQueryResponse><FlexStatements count="1">` +
	`<FlexStatement accountId="U1" fromDate="2025-07-01" toDate="2025-07-01"></FlexStatement>` +
	`</FlexStatements></FlexQueryResponse>`

func sendSuccess(ref string) string {
	return fmt.Sprintf(`<FlexStatementResponse><Status>Success</Status><ReferenceCode>%s</ReferenceCode></FlexStatementResponse>`, ref)
}

func controlError(code, msg string) string {
	return fmt.Sprintf(`<FlexStatementResponse><Status>Warn</Status><ErrorCode>%s</ErrorCode><ErrorMessage>%s</ErrorMessage></FlexStatementResponse>`, code, msg)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, maxRetries int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "tok", "q42", time.Millisecond, maxRetries, srv.Client())
	return c, srv
}

func TestFetch_SucceedsAfterPolling(t *testing.T) {
	var polls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/SendRequest":
			if r.URL.Query().Get("t") != "tok" || r.URL.Query().Get("q") != "q42" {
				t.Errorf("unexpected send params: %s", r.URL.RawQuery)
			}
			fmt.Fprint(w, sendSuccess("REF123"))
		case "/GetStatement":
			if r.URL.Query().Get("q") != "REF123" {
				t.Errorf("expected poll with reference code, got %s", r.URL.RawQuery)
			}
			if atomic.AddInt32(&polls, 1) < 3 {
				fmt.Fprint(w, controlError("1019", "Statement generation in progress"))
				return
			}
			fmt.Fprint(w, readyStatement)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, 5)

	body, ref, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if ref != "REF123" {
		t.Errorf("expected reference code REF123, got %s", ref)
	}
	if !strings.Contains(string(body), "FlexQueryResponse") {
		t.Errorf("expected statement body, got %q", body)
	}
	if got := atomic.LoadInt32(&polls); got != 3 {
		t.Errorf("expected 3 polls, got %d", got)
	}
}

func TestFetch_SendRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, controlError("1012", "Token has expired"))
	}, 2)

	_, _, err := c.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected send")
	}
	if !strings.Contains(err.Error(), "1012") {
		t.Errorf("expected error code in message, got %v", err)
	}
}

func TestFetch_PollBudgetExhausted(t *testing.T) {
	var polls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/SendRequest" {
			fmt.Fprint(w, sendSuccess("REF9"))
			return
		}
		atomic.AddInt32(&polls, 1)
		fmt.Fprint(w, controlError("1021", "Statement not yet available"))
	}, 2)

	_, ref, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if ref != "REF9" {
		t.Errorf("expected reference code preserved on failure, got %s", ref)
	}
	// initial attempt plus two retries
	if got := atomic.LoadInt32(&polls); got != 3 {
		t.Errorf("expected 3 poll attempts, got %d", got)
	}
}

func TestFetch_HardPollErrorDoesNotRetry(t *testing.T) {
	var polls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/SendRequest" {
			fmt.Fprint(w, sendSuccess("REF1"))
			return
		}
		atomic.AddInt32(&polls, 1)
		fmt.Fprint(w, controlError("1009", "Invalid request or unable to validate request"))
	}, 5)

	_, _, err := c.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "1009") {
		t.Fatalf("expected hard failure with code 1009, got %v", err)
	}
	if got := atomic.LoadInt32(&polls); got != 1 {
		t.Errorf("expected a single poll for a hard error, got %d", got)
	}
}

func TestFetch_ContextCancelStopsPolling(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/SendRequest" {
			fmt.Fprint(w, sendSuccess("REF1"))
			return
		}
		fmt.Fprint(w, controlError("1019", "Statement generation in progress"))
	}, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := c.Fetch(ctx)
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
}

func TestFetch_HTTPStatusError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 1)

	_, _, err := c.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}
