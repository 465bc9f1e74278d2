package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swapcycle/internal/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.JupiterConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v6/quote" {
			t.Errorf("path = %s, want /v6/quote", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != "mintA" || q.Get("outputMint") != "mintB" {
			t.Errorf("unexpected mints: %s -> %s", q.Get("inputMint"), q.Get("outputMint"))
		}
		if q.Get("amount") != "1000000" {
			t.Errorf("amount = %s, want 1000000", q.Get("amount"))
		}
		if q.Get("slippageBps") != "50" {
			t.Errorf("slippageBps = %s, want 50", q.Get("slippageBps"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"inputMint": "mintA",
			"inAmount": "1000000",
			"outputMint": "mintB",
			"outAmount": "999000",
			"otherAmountThreshold": "994005",
			"swapMode": "ExactIn",
			"slippageBps": 50,
			"priceImpactPct": "0.0001"
		}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	quote, err := client.Quote(context.Background(), QuoteRequest{
		InputMint:   "mintA",
		OutputMint:  "mintB",
		Amount:      1_000_000,
		SlippageBps: 50,
	})
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}

	if quote.OutAmount != "999000" {
		t.Errorf("outAmount = %s, want 999000", quote.OutAmount)
	}
	if quote.PriceImpactPct != "0.0001" {
		t.Errorf("priceImpactPct = %s, want 0.0001", quote.PriceImpactPct)
	}
	if len(quote.Raw()) == 0 {
		t.Error("expected raw quote payload to be retained")
	}
}

func TestQuote_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":"rate limit exceeded"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Quote(context.Background(), QuoteRequest{
		InputMint:   "mintA",
		OutputMint:  "mintB",
		Amount:      1,
		SlippageBps: 50,
	})
	if err == nil {
		t.Fatal("expected error on 429 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.Status)
	}
}

func TestBuildSwap_PassesQuoteThrough(t *testing.T) {
	quoteBody := `{"inputMint":"mintA","outAmount":"999000","routePlan":[{"percent":100}]}`

	mux := http.NewServeMux()
	mux.HandleFunc("/v6/quote", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, quoteBody)
	})
	mux.HandleFunc("/v6/swap", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]json.RawMessage
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("swap 请求不是合法 JSON: %v", err)
		}
		// 报价必须原样回传，聚合器依赖路由计划字段。
		if string(req["quoteResponse"]) != quoteBody {
			t.Errorf("quoteResponse = %s, want %s", req["quoteResponse"], quoteBody)
		}
		if string(req["userPublicKey"]) != `"user-pubkey"` {
			t.Errorf("userPublicKey = %s", req["userPublicKey"])
		}
		if string(req["prioritizationFeeLamports"]) != `"auto"` {
			t.Errorf("prioritizationFeeLamports = %s, want \"auto\"", req["prioritizationFeeLamports"])
		}
		io.WriteString(w, `{"swapTransaction":"AQIDBA==","lastValidBlockHeight":12345}`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	quote, err := client.Quote(context.Background(), QuoteRequest{
		InputMint:   "mintA",
		OutputMint:  "mintB",
		Amount:      1_000_000,
		SlippageBps: 50,
	})
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}

	swap, err := client.BuildSwap(context.Background(), quote, "user-pubkey", PriorityFee{Auto: true})
	if err != nil {
		t.Fatalf("BuildSwap returned error: %v", err)
	}
	if swap.SwapTransaction != "AQIDBA==" {
		t.Errorf("swapTransaction = %s, want AQIDBA==", swap.SwapTransaction)
	}
	if swap.LastValidBlockHeight != 12345 {
		t.Errorf("lastValidBlockHeight = %d, want 12345", swap.LastValidBlockHeight)
	}
}

func TestBuildSwap_FixedPriorityFee(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v6/quote", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"outAmount":"1"}`)
	})
	mux.HandleFunc("/v6/swap", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]json.RawMessage
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("swap 请求不是合法 JSON: %v", err)
		}
		if string(req["prioritizationFeeLamports"]) != `10000` {
			t.Errorf("prioritizationFeeLamports = %s, want 10000", req["prioritizationFeeLamports"])
		}
		io.WriteString(w, `{"swapTransaction":"AQ=="}`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	quote, err := client.Quote(context.Background(), QuoteRequest{
		InputMint:   "a",
		OutputMint:  "b",
		Amount:      1,
		SlippageBps: 1,
	})
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}

	if _, err := client.BuildSwap(context.Background(), quote, "user", PriorityFee{Lamports: 10_000}); err != nil {
		t.Fatalf("BuildSwap returned error: %v", err)
	}
}

func TestBuildSwap_MissingQuote(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	if _, err := client.BuildSwap(context.Background(), nil, "user", PriorityFee{Auto: true}); err == nil {
		t.Fatal("expected error for nil quote")
	}
}
