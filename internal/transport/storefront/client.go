package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/thevrus/sellflow/internal/domain"
	"github.com/thevrus/sellflow/internal/machine"
	apperrors "github.com/thevrus/sellflow/pkg/errors"
	"github.com/thevrus/sellflow/pkg/httpclient"
)

const accessTokenHeader = "X-Storefront-Access-Token"

// Config holds storefront API connection settings.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client talks to the storefront cart API. Every mutating call returns the
// API's {data, errors} envelope mapped onto a machine.Result; domain failures
// travel in Result.Errors while transport failures come back as the error.
type Client struct {
	http    *httpclient.BreakerClient
	baseURL string
	token   string
	logger  *slog.Logger
}

// New creates a storefront client with retrying transport and a circuit
// breaker.
func New(cfg Config, logger *slog.Logger) *Client {
	hcfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		hcfg.Timeout = cfg.Timeout
	}
	inner := httpclient.New(hcfg)

	return &Client{
		http:    httpclient.NewBreakerClient(inner, httpclient.DefaultBreakerConfig("storefront"), logger),
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		logger:  logger,
	}
}

// envelope is the storefront response shape: the cart under data, domain
// failures under errors.
type envelope struct {
	Data struct {
		Cart *domain.RawCart `json:"cart"`
	} `json:"data"`
	Errors []domain.CartError `json:"errors,omitempty"`
}

// Fetch loads an existing cart by ID.
func (c *Client) Fetch(ctx context.Context, cartID string) (machine.Result, error) {
	return c.do(ctx, http.MethodGet, c.cartPath(cartID), nil)
}

// Create creates a new cart from the given input.
func (c *Client) Create(ctx context.Context, input domain.CartInput) (machine.Result, error) {
	return c.do(ctx, http.MethodPost, "/carts", input)
}

// AddLines adds merchandise lines to the cart.
func (c *Client) AddLines(ctx context.Context, cartID string, lines []domain.CartLineInput) (machine.Result, error) {
	body := struct {
		Lines []domain.CartLineInput `json:"lines"`
	}{Lines: lines}
	return c.do(ctx, http.MethodPost, c.cartPath(cartID)+"/lines", body)
}

// UpdateLines changes quantities or attributes of existing lines.
func (c *Client) UpdateLines(ctx context.Context, cartID string, updates []domain.CartLineUpdateInput) (machine.Result, error) {
	body := struct {
		Lines []domain.CartLineUpdateInput `json:"lines"`
	}{Lines: updates}
	return c.do(ctx, http.MethodPut, c.cartPath(cartID)+"/lines", body)
}

// RemoveLines removes lines by ID.
func (c *Client) RemoveLines(ctx context.Context, cartID string, lineIDs []string) (machine.Result, error) {
	body := struct {
		LineIDs []string `json:"line_ids"`
	}{LineIDs: lineIDs}
	return c.do(ctx, http.MethodPost, c.cartPath(cartID)+"/lines/remove", body)
}

// UpdateNote replaces the cart note.
func (c *Client) UpdateNote(ctx context.Context, cartID, note string) (machine.Result, error) {
	body := struct {
		Note string `json:"note"`
	}{Note: note}
	return c.do(ctx, http.MethodPut, c.cartPath(cartID)+"/note", body)
}

// UpdateBuyerIdentity associates buyer details with the cart.
func (c *Client) UpdateBuyerIdentity(ctx context.Context, cartID string, identity domain.BuyerIdentity) (machine.Result, error) {
	body := struct {
		BuyerIdentity domain.BuyerIdentity `json:"buyer_identity"`
	}{BuyerIdentity: identity}
	return c.do(ctx, http.MethodPut, c.cartPath(cartID)+"/buyer-identity", body)
}

// UpdateAttributes replaces the cart-level attributes.
func (c *Client) UpdateAttributes(ctx context.Context, cartID string, attrs []domain.Attribute) (machine.Result, error) {
	body := struct {
		Attributes []domain.Attribute `json:"attributes"`
	}{Attributes: attrs}
	return c.do(ctx, http.MethodPut, c.cartPath(cartID)+"/attributes", body)
}

// UpdateDiscountCodes replaces the applied discount codes.
func (c *Client) UpdateDiscountCodes(ctx context.Context, cartID string, codes []string) (machine.Result, error) {
	body := struct {
		DiscountCodes []string `json:"discount_codes"`
	}{DiscountCodes: codes}
	return c.do(ctx, http.MethodPut, c.cartPath(cartID)+"/discount-codes", body)
}

func (c *Client) cartPath(cartID string) string {
	return "/carts/" + url.PathEscape(cartID)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (machine.Result, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return machine.Result{}, fmt.Errorf("marshal storefront request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return machine.Result{}, fmt.Errorf("create storefront request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(accessTokenHeader, c.token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return machine.Result{}, apperrors.Upstream("storefront request failed").WithErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return machine.Result{}, apperrors.Upstream("read storefront response").WithErr(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.ErrorContext(ctx, "undecodable storefront response",
			slog.Int("status", resp.StatusCode),
			slog.String("path", path),
		)
		return machine.Result{}, apperrors.Upstream(
			fmt.Sprintf("storefront returned undecodable %d response", resp.StatusCode)).WithErr(err)
	}

	// 4xx with a decoded envelope carries domain errors, not a transport
	// failure; a 4xx without any is still an upstream problem.
	if resp.StatusCode >= 400 && len(env.Errors) == 0 {
		return machine.Result{}, apperrors.Upstream(
			fmt.Sprintf("storefront returned status %d", resp.StatusCode))
	}

	return machine.Result{Cart: env.Data.Cart, Errors: env.Errors}, nil
}
