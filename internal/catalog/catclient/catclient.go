package catclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/andymarkow/hostmart/internal/httpclient"
)

var (
	ErrItemNotFound       = errors.New("store item not found")
	ErrPriceFormatInvalid = errors.New("store item price format is invalid")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrSomethingWentWrong = errors.New("something went wrong")
)

// ItemModel is the catalog service response payload. Prices come back as
// decimal minor currency units.
type ItemModel struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CatalogClient fetches current store item prices from the catalog service.
type CatalogClient struct {
	log    *slog.Logger
	client *resty.Client
}

func New(opts ...Option) *CatalogClient {
	catClient := &CatalogClient{
		log:    slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(catClient)
	}

	return catClient
}

type Option func(c *CatalogClient)

func WithLogger(logger *slog.Logger) Option {
	return func(c *CatalogClient) {
		c.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(c *CatalogClient) {
		c.client = client
	}
}

// GetItemPrice returns the current item price in integer minor units.
// Orders always debit the price at purchase time, never a cached one.
func (c *CatalogClient) GetItemPrice(ctx context.Context, itemID string) (int64, error) {
	itemData := new(ItemModel)

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(itemData).
		SetPathParams(map[string]string{
			"itemID": itemID,
		}).
		Get("/api/items/{itemID}")
	if err != nil {
		return 0, fmt.Errorf("client.R: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusNotFound, http.StatusNoContent:
		return 0, ErrItemNotFound
	case http.StatusTooManyRequests:
		return 0, ErrTooManyRequests
	case http.StatusInternalServerError:
		return 0, ErrSomethingWentWrong
	}

	if !itemData.Price.IsInteger() || itemData.Price.Sign() <= 0 {
		return 0, ErrPriceFormatInvalid
	}

	return itemData.Price.IntPart(), nil
}
