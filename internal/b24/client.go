package b24

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"b24-bot/internal/cache"
	"b24-bot/internal/metrics"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultProductListTTL = 5 * time.Minute
	productListCacheKey   = "b24:product_list"
)

// Client provides typed access to the Bitrix24 REST API. It is stateless:
// every method is a single HTTP round trip, never issued while a database
// connection is held.
type Client struct {
	logger       *slog.Logger
	baseURL      string
	connectorURL string
	catalogBlock int
	http         *http.Client
	metrics      *metrics.Metrics
	cache        *cache.Redis
	productTTL   time.Duration
}

// Config holds Bitrix24 client configuration.
type Config struct {
	// BaseURL is the inbound webhook URL, credentials included.
	BaseURL string
	// ConnectorURL points at the open-line connector endpoint.
	ConnectorURL string
	// CatalogBlock is the information block id holding the product catalog.
	CatalogBlock int
	Timeout      time.Duration
}

// responseEnvelope mirrors Bitrix's standard response shape.
type responseEnvelope struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// New creates a new Bitrix24 client.
func New(cfg Config, logger *slog.Logger, metrics *metrics.Metrics, redis *cache.Redis) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		logger:       logger.With("component", "b24"),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		connectorURL: strings.TrimRight(cfg.ConnectorURL, "/"),
		catalogBlock: cfg.CatalogBlock,
		http:         &http.Client{Timeout: timeout},
		metrics:      metrics,
		cache:        redis,
		productTTL:   defaultProductListTTL,
	}
}

// post issues one REST call and unwraps the response envelope.
func (c *Client) post(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.B24Latency.WithLabelValues(method).Observe(time.Since(started).Seconds())
	}
	if err != nil {
		c.countRequest(method, "error")
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countRequest(method, "error")
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var env responseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.countRequest(method, "error")
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if env.Error != "" {
		c.countRequest(method, "error")
		return nil, fmt.Errorf("call %s: %s: %s", method, env.Error, env.ErrorDescription)
	}

	c.countRequest(method, "ok")
	return env.Result, nil
}

func (c *Client) countRequest(method, status string) {
	if c.metrics != nil {
		c.metrics.B24Requests.WithLabelValues(method, status).Inc()
	}
}

// ProductPrice carries the price fields merged into each catalog entry.
type ProductPrice struct {
	Price      float64
	CurrencyID string
}

// GetProductPrice fetches the price of a single product.
func (c *Client) GetProductPrice(ctx context.Context, productID int) (ProductPrice, error) {
	result, err := c.post(ctx, "crm.product.get", map[string]any{"id": productID})
	if err != nil {
		return ProductPrice{}, err
	}

	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(result, &raw); err != nil {
		return ProductPrice{}, fmt.Errorf("decode product %d: %w", productID, err)
	}
	return ProductPrice{
		Price:      readFloatRaw(raw, "PRICE"),
		CurrencyID: readStringRaw(raw, "CURRENCY_ID"),
	}, nil
}

// GetProductList returns the active catalog entries with prices merged in.
// The assembled list is cached in redis; forceRefresh drops the cache and
// hits the CRM.
func (c *Client) GetProductList(ctx context.Context, forceRefresh bool) ([]ProductEntry, error) {
	if c.cache != nil {
		if forceRefresh {
			if err := c.cache.Delete(ctx, productListCacheKey); err != nil {
				c.logger.Warn("drop product list cache failed", "error", err)
			}
		} else {
			var cached []ProductEntry
			ok, err := c.cache.GetJSON(ctx, productListCacheKey, &cached)
			if err != nil {
				c.logger.Warn("read product list cache failed", "error", err)
			} else if ok {
				return cached, nil
			}
		}
	}

	payload := map[string]any{
		"select": []string{"id", "iblockId", "name", "detailText", "dateActiveTo", "dateActiveFrom", "iblockSectionId"},
		"filter": map[string]any{"iblockId": c.catalogBlock, "active": "Y"},
	}
	result, err := c.post(ctx, "catalog.product.list", payload)
	if err != nil {
		return nil, err
	}

	var listResult struct {
		Products []ProductEntry `json:"products"`
	}
	if err := json.Unmarshal(result, &listResult); err != nil {
		return nil, fmt.Errorf("decode product list: %w", err)
	}

	for i := range listResult.Products {
		price, err := c.GetProductPrice(ctx, listResult.Products[i].ID)
		if err != nil {
			return nil, fmt.Errorf("product %d price: %w", listResult.Products[i].ID, err)
		}
		listResult.Products[i].Price = price.Price
		listResult.Products[i].CurrencyID = price.CurrencyID
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, productListCacheKey, listResult.Products, c.productTTL); err != nil {
			c.logger.Warn("set product list cache failed", "error", err)
		}
	}
	return listResult.Products, nil
}

// DeactivateProduct hides a product from the catalog.
func (c *Client) DeactivateProduct(ctx context.Context, productID int) error {
	_, err := c.post(ctx, "crm.product.update", map[string]any{
		"id":     productID,
		"fields": map[string]any{"ACTIVE": "N"},
	})
	return err
}

// MakeNewContact creates a CRM contact for a bot user and returns the
// contact id.
func (c *Client) MakeNewContact(ctx context.Context, userID int64, fullName, username, imLink string) (int, error) {
	payload := map[string]any{
		"fields": map[string]any{
			"NAME":              fullName,
			"OPENED":            "Y",
			"ASSIGNED_BY_ID":    1,
			"TYPE_ID":           "CLIENT",
			"UF_CRM_1695708161": strconv.FormatInt(userID, 10),
			"HAS_IMOL":          "Y",
			"WEB": []map[string]any{
				{"VALUE": "https://t.me/" + username, "VALUE_TYPE": "WORK", "TYPE_ID": "WEB"},
			},
			"IM": []map[string]any{
				{"VALUE": imLink, "VALUE_TYPE": "IMOL", "TYPE_ID": "IM"},
			},
		},
	}
	result, err := c.post(ctx, "crm.contact.add", payload)
	if err != nil {
		return 0, err
	}

	var contactID int
	if err := json.Unmarshal(result, &contactID); err != nil {
		return 0, fmt.Errorf("decode contact id: %w", err)
	}
	return contactID, nil
}

// FindContactByTelegramID looks a contact up by the Telegram id custom
// field. Returns nil when no contact matches.
func (c *Client) FindContactByTelegramID(ctx context.Context, userID int64) (*int, error) {
	payload := map[string]any{
		"filter": map[string]any{"UF_CRM_1695708161": strconv.FormatInt(userID, 10)},
	}
	result, err := c.post(ctx, "crm.contact.list", payload)
	if err != nil {
		return nil, err
	}

	var contacts []map[string]json.RawMessage
	if err := json.Unmarshal(result, &contacts); err != nil {
		return nil, fmt.Errorf("decode contact list: %w", err)
	}
	if len(contacts) == 0 {
		return nil, nil
	}

	id := int(readFloatRaw(contacts[0], "ID", "id"))
	if id == 0 {
		return nil, fmt.Errorf("contact list entry has no id")
	}
	return &id, nil
}

// UpdateContactPhone attaches a phone number to an existing contact.
func (c *Client) UpdateContactPhone(ctx context.Context, contactID int, phone string) error {
	_, err := c.post(ctx, "crm.contact.update", map[string]any{
		"id": contactID,
		"fields": map[string]any{
			"HAS_PHONE": "Y",
			"PHONE": []map[string]any{
				{"VALUE": phone, "VALUE_TYPE": "WORK", "TYPE_ID": "PHONE"},
			},
		},
	})
	return err
}

// UpdateLeadStatus moves a lead to the given pipeline status.
func (c *Client) UpdateLeadStatus(ctx context.Context, leadID int, status string) error {
	_, err := c.post(ctx, "crm.lead.update", map[string]any{
		"id":     leadID,
		"fields": map[string]any{"STATUS_ID": status},
	})
	return err
}

// UpdateLeadContact binds a contact to a lead.
func (c *Client) UpdateLeadContact(ctx context.Context, leadID, contactID int) error {
	_, err := c.post(ctx, "crm.lead.update", map[string]any{
		"id":     leadID,
		"fields": map[string]any{"CONTACT_ID": contactID},
	})
	return err
}

// AddNewDeal opens a deal in the invoice stage and returns its id.
func (c *Client) AddNewDeal(ctx context.Context, fullName, eventName string, contactID int) (int, error) {
	payload := map[string]any{
		"fields": map[string]any{
			"TITLE":          fullName + " - " + eventName,
			"TYPE_ID":        "SALE",
			"STAGE_ID":       DealStageFinalInvoice,
			"CONTACT_ID":     contactID,
			"ASSIGNED_BY_ID": 1,
			"IS_NEW":         "Y",
			"SOURCE_ID":      "4|EXAMPLE_CONNECTOR_1",
		},
	}
	result, err := c.post(ctx, "crm.deal.add", payload)
	if err != nil {
		return 0, err
	}

	var dealID int
	if err := json.Unmarshal(result, &dealID); err != nil {
		return 0, fmt.Errorf("decode deal id: %w", err)
	}
	return dealID, nil
}

// AddProductToDeal attaches a product row to a deal.
func (c *Client) AddProductToDeal(ctx context.Context, dealID, productID int, price float64) error {
	_, err := c.post(ctx, "crm.deal.productrows.set", map[string]any{
		"id":   dealID,
		"rows": []map[string]any{{"PRODUCT_ID": productID, "PRICE": price}},
	})
	return err
}

// UpdateDealStage moves a deal to the given pipeline stage.
func (c *Client) UpdateDealStage(ctx context.Context, dealID int, stage string) error {
	_, err := c.post(ctx, "crm.deal.update", map[string]any{
		"id":     dealID,
		"fields": map[string]any{"STAGE_ID": stage},
	})
	return err
}

// GetDealProductRows returns the raw product rows attached to a deal.
func (c *Client) GetDealProductRows(ctx context.Context, dealID int) (json.RawMessage, error) {
	return c.post(ctx, "crm.deal.productrows.get", map[string]any{"id": dealID})
}

// GetDealListByStage returns the ids of all deals in a pipeline stage.
func (c *Client) GetDealListByStage(ctx context.Context, stage string) ([]int, error) {
	payload := map[string]any{
		"filter": map[string]any{"STAGE_ID": stage},
		"select": []string{"ID"},
	}
	result, err := c.post(ctx, "crm.deal.list", payload)
	if err != nil {
		return nil, err
	}

	var deals []map[string]json.RawMessage
	if err := json.Unmarshal(result, &deals); err != nil {
		return nil, fmt.Errorf("decode deal list: %w", err)
	}

	ids := make([]int, 0, len(deals))
	for _, deal := range deals {
		if id := int(readFloatRaw(deal, "ID", "id")); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SendMessageToOpenLine forwards a bot message into the CRM open line
// through the connector.
func (c *Client) SendMessageToOpenLine(ctx context.Context, userID int64, fullName, message string) error {
	if c.connectorURL == "" {
		return fmt.Errorf("connector url is not configured")
	}

	body, err := json.Marshal(map[string]any{
		"chat_id":   userID,
		"full_name": fullName,
		"msg":       message,
	})
	if err != nil {
		return fmt.Errorf("marshal open line message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.connectorURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build open line request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.countRequest("openline.send", "error")
		return fmt.Errorf("send open line message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		c.countRequest("openline.send", "error")
		return fmt.Errorf("send open line message: status %d", resp.StatusCode)
	}
	c.countRequest("openline.send", "ok")
	return nil
}
