package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/sondaumoi/storechain-backend/pkg/config"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
)

var (
	errPayPalBaseURLRequired = errors.New("paypal base url is required")
	errPayPalCredsRequired   = errors.New("paypal client id and secret are required")
)

// PayPalClient captures approved PayPal orders and reports the amount the
// processor actually took. That amount is authoritative for reconciliation;
// the client never initiates refunds.
type PayPalClient struct {
	http *resty.Client
	logg *logger.Logger
}

// NewPayPalClient builds a PayPal client from configuration.
func NewPayPalClient(cfg config.PayPalConfig, logg *logger.Logger) (*PayPalClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errPayPalBaseURLRequired
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errPayPalCredsRequired
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(clientID, clientSecret)

	return &PayPalClient{http: client, logg: logg}, nil
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				Status string `json:"status"`
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// Capture captures the approved PayPal order and returns the captured amount
// in cents.
func (c *PayPalClient) Capture(ctx context.Context, paypalOrderID string) (int, error) {
	if strings.TrimSpace(paypalOrderID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "paypal order id required")
	}

	var out captureResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetResult(&out).
		Post(fmt.Sprintf("/v2/checkout/orders/%s/capture", paypalOrderID))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paypal capture request failed")
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return 0, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paypal capture rejected: %s", resp.Status()))
	}
	if out.Status != "COMPLETED" {
		return 0, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paypal capture not completed: %s", out.Status))
	}

	total := decimal.Zero
	found := false
	for _, unit := range out.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			if capture.Status != "COMPLETED" {
				continue
			}
			value, err := decimal.NewFromString(capture.Amount.Value)
			if err != nil {
				return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse captured amount")
			}
			total = total.Add(value)
			found = true
		}
	}
	if !found {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "paypal capture has no completed captures")
	}

	cents := total.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("captured amount %s is not a whole cent value", total))
	}
	return int(cents.IntPart()), nil
}
