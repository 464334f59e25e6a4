package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Client talks JSON over HTTP to the store backend.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[response]
	sfg     singleflight.Group // de-duplicates concurrent payment-method listings
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(log *zap.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        "pos-backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx answers are the backend working correctly.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.Temporary()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, in any) (response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return response{}, fmt.Errorf("marshal request failed: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.breaker.Execute(func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return response{}, err
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		httpResp, err := c.http.Do(req)
		if err != nil {
			return response{}, err
		}
		defer httpResp.Body.Close()
		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return response{}, fmt.Errorf("read response body failed: %w", err)
		}
		r := response{status: httpResp.StatusCode, body: data}
		if httpResp.StatusCode >= 300 {
			return r, &StatusError{Code: httpResp.StatusCode, Message: errorMessage(data)}
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return resp, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return resp, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if err != nil {
		return resp, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("unmarshal %s response failed: %w", path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) LookupBarcode(ctx context.Context, barcode string) (*d.Product, error) {
	var p d.Product
	if err := c.doJSON(ctx, http.MethodGet, "/api/products/barcode/"+url.PathEscape(barcode), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) StartTransaction(ctx context.Context, req *d.StartTransactionRequest) (*d.StartTransactionResponse, error) {
	var resp d.StartTransactionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/transactions/start", req, &resp); err != nil {
		return nil, err
	}
	if resp.TransactionID == "" {
		return nil, errors.New("start transaction: response has no transaction_id")
	}
	return &resp, nil
}

// ListPaymentMethods returns the configured methods sorted by display order. Concurrent
// callers share one request, which runs detached from any single caller's context.
func (c *Client) ListPaymentMethods(ctx context.Context) ([]d.PaymentMethodInfo, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan("payment-methods", func() (interface{}, error) {
		var methods []d.PaymentMethodInfo
		if err := c.doJSON(shared, http.MethodGet, "/api/payment-methods", nil, &methods); err != nil {
			return nil, err
		}
		sort.SliceStable(methods, func(i, j int) bool {
			return methods[i].DisplayOrder < methods[j].DisplayOrder
		})
		return methods, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]d.PaymentMethodInfo(nil), res.Val.([]d.PaymentMethodInfo)...), nil
	}
}

type paymentWire struct {
	Success bool `json:"success"`
	Data    *struct {
		Change decimal.NullDecimal `json:"change"`
	} `json:"data,omitempty"`
	Change decimal.NullDecimal `json:"change"`
	Error  string              `json:"error"`
}

// ProcessPayment reports a decline as a successful call with Success false. Only
// transport failures and 5xx answers are errors.
func (c *Client) ProcessPayment(ctx context.Context, req *d.PaymentRequest) (*d.PaymentResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/payments/process", req)
	var se *StatusError
	if err != nil && !(errors.As(err, &se) && !se.Temporary()) {
		return nil, err
	}

	var wire paymentWire
	if uerr := json.Unmarshal(resp.body, &wire); uerr != nil {
		if se != nil {
			return &d.PaymentResponse{Success: false, Error: se.Message}, nil
		}
		return nil, fmt.Errorf("unmarshal payment response failed: %w", uerr)
	}
	out := &d.PaymentResponse{Success: wire.Success && se == nil, Error: wire.Error}
	switch {
	case wire.Data != nil && wire.Data.Change.Valid:
		out.Change = wire.Data.Change.Decimal
	case wire.Change.Valid:
		out.Change = wire.Change.Decimal
	}
	if !out.Success && out.Error == "" {
		out.Error = "payment declined"
	}
	return out, nil
}

func (c *Client) SaveSignature(ctx context.Context, req *d.SignatureRequest) error {
	path := fmt.Sprintf("/api/transactions/%s/signature", url.PathEscape(req.TransactionID))
	return c.doJSON(ctx, http.MethodPost, path, req, nil)
}

func (c *Client) SaveReceiptPreference(ctx context.Context, req *d.ReceiptPreferenceRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/receipts/preference", req, nil)
}

// DownloadReceipt fetches the rendered receipt document for a transaction.
func (c *Client) DownloadReceipt(ctx context.Context, transactionID string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/receipts/%s/pdf", url.PathEscape(transactionID)), nil)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}
