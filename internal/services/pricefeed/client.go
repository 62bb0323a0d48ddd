package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Observation is one retailer listing from the feed.
type Observation struct {
	Brand      string          `json:"brand"`
	Model      string          `json:"model"`
	Price      decimal.Decimal `json:"price"`
	URL        string          `json:"url"`
	InStock    *bool           `json:"in_stock,omitempty"`
	ObservedAt time.Time       `json:"observed_at"`
}

type feedResponse struct {
	Retailer string        `json:"retailer"`
	Items    []Observation `json:"items"`
}

// Client reads retailer price listings from the feed service.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL, apiKey string) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &Client{client: client}
}

// Fetch returns the current listings of one retailer.
func (c *Client) Fetch(ctx context.Context, retailer string) ([]Observation, error) {
	var body feedResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("retailer", retailer).
		SetResult(&body).
		Get("/retailers/{retailer}/prices")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s prices: %w", retailer, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("price feed returned %d for %s", resp.StatusCode(), retailer)
	}
	return body.Items, nil
}

// Retailers lists the retailers the feed knows.
func (c *Client) Retailers(ctx context.Context) ([]string, error) {
	var body struct {
		Retailers []string `json:"retailers"`
	}
	resp, err := c.client.R().SetContext(ctx).SetResult(&body).Get("/retailers")
	if err != nil {
		return nil, fmt.Errorf("failed to list retailers: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("price feed returned %d listing retailers", resp.StatusCode())
	}
	return body.Retailers, nil
}
