// Package backend wraps the commerce REST API the storefront consumes:
// OTP authentication, the authenticated cart and wishlist, and the product
// catalog. The storefront never talks HTTP to the backend outside this
// package.
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
	"strings"
	"time"

	"github.com/liminara-shop/storefront/internal/domain"
)

const defaultTimeout = 8 * time.Second

// OTPRequest carries the identifier the code should be delivered to. Name is
// optional and only used when the identifier belongs to a new customer.
type OTPRequest struct {
	Identifier string
	Method     string
	Name       string
}

// VerifyResult is the session material returned by a successful verification.
type VerifyResult struct {
	User  domain.User
	Token string
}

// Service is the surface of the commerce API the storefront consumes. The
// HTTP client and the in-memory fake both implement it.
type Service interface {
	RequestOTP(ctx context.Context, req OTPRequest) error
	VerifyOTP(ctx context.Context, identifier, code string) (VerifyResult, error)

	Cart(ctx context.Context, token string) ([]domain.CartLineItem, error)
	AddCartItem(ctx context.Context, token, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, token, productID string) error

	Wishlist(ctx context.Context, token string) ([]domain.WishlistEntry, error)
	AddWishlistItem(ctx context.Context, token, productID string) error
	RemoveWishlistItem(ctx context.Context, token, productID string) error

	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, productID string) (domain.Product, error)
}

// Client issues REST calls against the commerce backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// RequestOTP asks the backend to deliver a one-time code to the identifier.
func (c *Client) RequestOTP(ctx context.Context, req OTPRequest) error {
	body := map[string]string{
		"identifier": strings.TrimSpace(req.Identifier),
		"method":     strings.TrimSpace(req.Method),
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		body["name"] = name
	}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/request-otp", "", body, nil)
}

// VerifyOTP exchanges the code for a user profile and bearer token.
func (c *Client) VerifyOTP(ctx context.Context, identifier, code string) (VerifyResult, error) {
	body := map[string]string{
		"identifier": strings.TrimSpace(identifier),
		"otp":        strings.TrimSpace(code),
	}
	var payload struct {
		User  userPayload `json:"user"`
		Token string      `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/verify-otp", "", body, &payload); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		User:  payload.User.toUser(),
		Token: strings.TrimSpace(payload.Token),
	}, nil
}

// Cart fetches the authenticated user's cart lines.
func (c *Client) Cart(ctx context.Context, token string) ([]domain.CartLineItem, error) {
	var payload []cartItemPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/cart", token, nil, &payload); err != nil {
		return nil, err
	}
	items := make([]domain.CartLineItem, 0, len(payload))
	for _, item := range payload {
		items = append(items, item.toLineItem())
	}
	return items, nil
}

// AddCartItem adds (or increments) a product in the authenticated cart.
func (c *Client) AddCartItem(ctx context.Context, token, productID string, quantity int) error {
	body := map[string]any{
		"productId": strings.TrimSpace(productID),
		"quantity":  quantity,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/cart", token, body, nil)
}

// RemoveCartItem removes a product from the authenticated cart.
func (c *Client) RemoveCartItem(ctx context.Context, token, productID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(strings.TrimSpace(productID)), token, nil, nil)
}

// Wishlist fetches the authenticated user's wishlist.
func (c *Client) Wishlist(ctx context.Context, token string) ([]domain.WishlistEntry, error) {
	var payload []wishlistItemPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/wishlist", token, nil, &payload); err != nil {
		return nil, err
	}
	entries := make([]domain.WishlistEntry, 0, len(payload))
	for _, item := range payload {
		entries = append(entries, item.toEntry())
	}
	return entries, nil
}

// AddWishlistItem marks a product as saved for the authenticated user.
func (c *Client) AddWishlistItem(ctx context.Context, token, productID string) error {
	body := map[string]string{"productId": strings.TrimSpace(productID)}
	return c.doJSON(ctx, http.MethodPost, "/api/wishlist", token, body, nil)
}

// RemoveWishlistItem unmarks a saved product.
func (c *Client) RemoveWishlistItem(ctx context.Context, token, productID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/wishlist/"+url.PathEscape(strings.TrimSpace(productID)), token, nil, nil)
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var payload []productPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/products", "", nil, &payload); err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(payload))
	for _, item := range payload {
		products = append(products, item.toProduct())
	}
	return products, nil
}

// Product fetches a single catalog entry.
func (c *Client) Product(ctx context.Context, productID string) (domain.Product, error) {
	var payload productPayload
	err := c.doJSON(ctx, http.MethodGet, "/api/products/"+url.PathEscape(strings.TrimSpace(productID)), "", nil, &payload)
	if err != nil {
		return domain.Product{}, err
	}
	return payload.toProduct(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	endpoint := c.baseURL + path

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", path, err)
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Message = strings.TrimSpace(payload.Message)
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

type userPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (p userPayload) toUser() domain.User {
	return domain.User{
		ID:    strings.TrimSpace(p.ID),
		Name:  strings.TrimSpace(p.Name),
		Phone: strings.TrimSpace(p.Phone),
		Email: strings.TrimSpace(p.Email),
	}
}

type productPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	OriginalPrice string `json:"originalPrice"`
	DealPrice     string `json:"dealPrice"`
	IsDeal        bool   `json:"isDeal"`
	ImageURL      string `json:"imageUrl"`
	Stock         int    `json:"stock"`
	Category      string `json:"category"`
}

func (p productPayload) toProduct() domain.Product {
	return domain.Product{
		ID:            strings.TrimSpace(p.ID),
		Name:          strings.TrimSpace(p.Name),
		Description:   strings.TrimSpace(p.Description),
		Price:         strings.TrimSpace(p.Price),
		OriginalPrice: strings.TrimSpace(p.OriginalPrice),
		DealPrice:     strings.TrimSpace(p.DealPrice),
		IsDeal:        p.IsDeal,
		ImageURL:      strings.TrimSpace(p.ImageURL),
		Stock:         p.Stock,
		Category:      strings.TrimSpace(p.Category),
	}
}

type snapshotPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	ImageURL string `json:"imageUrl"`
}

func (p snapshotPayload) toSnapshot() domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ID:       strings.TrimSpace(p.ID),
		Name:     strings.TrimSpace(p.Name),
		Price:    strings.TrimSpace(p.Price),
		ImageURL: strings.TrimSpace(p.ImageURL),
	}
}

type cartItemPayload struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   snapshotPayload `json:"product"`
	AddedAt   string          `json:"addedAt"`
}

func (p cartItemPayload) toLineItem() domain.CartLineItem {
	return domain.CartLineItem{
		LineID:    strings.TrimSpace(p.ID),
		ProductID: strings.TrimSpace(p.ProductID),
		Quantity:  p.Quantity,
		Product:   p.Product.toSnapshot(),
		AddedAt:   parseTime(p.AddedAt),
	}
}

type wishlistItemPayload struct {
	ProductID string          `json:"productId"`
	Product   snapshotPayload `json:"product"`
	AddedAt   string          `json:"addedAt"`
}

func (p wishlistItemPayload) toEntry() domain.WishlistEntry {
	return domain.WishlistEntry{
		ProductID: strings.TrimSpace(p.ProductID),
		Product:   p.Product.toSnapshot(),
		AddedAt:   parseTime(p.AddedAt),
	}
}

func parseTime(val string) time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC3339Nano, time.RFC3339}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, val); err == nil {
			return ts
		}
	}
	return time.Time{}
}
