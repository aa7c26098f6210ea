package shipping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/sondaumoi/storechain-backend/internal/orders"
	"github.com/sondaumoi/storechain-backend/pkg/config"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("carrier base url is required")
	errTokenRequired   = errors.New("carrier token is required")
)

// CarrierClient books shipments with the external carrier's REST API. It
// implements orders.ShipmentBooker; a booking failure must surface as an
// error with no other side effect so the order stays in processing.
type CarrierClient struct {
	http   *resty.Client
	shopID string
	logg   *logger.Logger
}

// NewCarrierClient builds a carrier client from configuration.
func NewCarrierClient(cfg config.CarrierConfig, logg *logger.Logger) (*CarrierClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errTokenRequired
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Token", token)

	return &CarrierClient{
		http:   client,
		shopID: strings.TrimSpace(cfg.ShopID),
		logg:   logg,
	}, nil
}

type createShipmentRequest struct {
	ShopID      string `json:"shop_id,omitempty"`
	ClientRef   string `json:"client_order_code"`
	Destination string `json:"to_address"`
	WeightGrams int    `json:"weight"`
	CODAmount   int    `json:"cod_amount"`
	Content     string `json:"content"`
}

type createShipmentResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		OrderCode   string `json:"order_code"`
		TotalFee    int    `json:"total_fee"`
		ExpectedETA string `json:"expected_delivery_time"`
	} `json:"data"`
}

// CreateShipment books one shipment and returns the carrier's tracking data.
func (c *CarrierClient) CreateShipment(ctx context.Context, req orders.ShipmentRequest) (*orders.ShipmentBooking, error) {
	if strings.TrimSpace(req.Destination) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment destination required")
	}
	if req.WeightGrams <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment weight must be positive")
	}

	var out createShipmentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createShipmentRequest{
			ShopID:      c.shopID,
			ClientRef:   req.OrderID.String(),
			Destination: req.Destination,
			WeightGrams: req.WeightGrams,
			CODAmount:   req.CODAmountCents,
			Content:     req.ItemDescription,
		}).
		SetResult(&out).
		Post("/v2/shipping-order/create")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "carrier request failed")
	}
	if resp.StatusCode() != http.StatusOK || out.Data.OrderCode == "" {
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"status":  resp.StatusCode(),
				"message": out.Message,
			})
			c.logg.Warn(logCtx, "carrier rejected shipment")
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("carrier rejected shipment: %s", nonEmpty(out.Message, resp.Status())))
	}

	return &orders.ShipmentBooking{
		Carrier:      "GHN",
		TrackingCode: out.Data.OrderCode,
		FeeCents:     out.Data.TotalFee,
		ETA:          out.Data.ExpectedETA,
	}, nil
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
