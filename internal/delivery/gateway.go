package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tupmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/tupmarket/marketplace-backend/pkg/errors"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
	"github.com/tupmarket/marketplace-backend/pkg/metrics"
)

const (
	quotationsPath = "/v3/quotations"
	ordersPath     = "/v3/orders"

	itemQuantity = "1"
	itemWeight   = "SMALL"
)

// Requester is the signed HTTP surface the gateway needs; satisfied by
// *lalamove.Client.
type Requester interface {
	Do(ctx context.Context, method, path string, payload any) (json.RawMessage, error)
}

// Quote is a priced courier quotation. The QuotationID must be carried
// unchanged into Book, the provider rejects bookings against a
// different quotation.
type Quote struct {
	Fee         decimal.Decimal
	Currency    string
	QuotationID string
}

// Booking is a placed courier order.
type Booking struct {
	OrderID  string
	ShareURL string
}

// Gateway turns pickup/dropoff addresses into courier quotes and
// bookings.
type Gateway struct {
	client        Requester
	logg          *logger.Logger
	metrics       *metrics.PaymentMetrics
	pickupAddress string
	serviceType   string
	language      string
	now           func() time.Time
}

// NewGateway wires the gateway against a signed provider client.
func NewGateway(client Requester, cfg config.CheckoutConfig, llmCfg config.LalamoveConfig, logg *logger.Logger, pm *metrics.PaymentMetrics) *Gateway {
	return &Gateway{
		client:        client,
		logg:          logg,
		metrics:       pm,
		pickupAddress: cfg.PickupAddress,
		serviceType:   llmCfg.ServiceType,
		language:      llmCfg.Language,
		now:           time.Now,
	}
}

type stop struct {
	Address string `json:"address"`
}

type quoteItem struct {
	Quantity string `json:"quantity"`
	Weight   string `json:"weight"`
}

type quoteData struct {
	ScheduleAt  string    `json:"scheduleAt"`
	ServiceType string    `json:"serviceType"`
	Language    string    `json:"language"`
	Stops       []stop    `json:"stops"`
	Item        quoteItem `json:"item"`
}

type quoteRequest struct {
	Data quoteData `json:"data"`
}

type priceBreakdown struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type quoteResponseData struct {
	QuotationID    string          `json:"quotationId"`
	PriceBreakdown *priceBreakdown `json:"priceBreakdown"`
}

type quoteResponse struct {
	Data quoteResponseData `json:"data"`
}

// GetQuote prices a courier delivery from the configured pickup point
// to the given dropoff address. The pickup stop always comes first.
func (g *Gateway) GetQuote(ctx context.Context, dropoffAddress string) (*Quote, error) {
	dropoff := strings.TrimSpace(dropoffAddress)
	if dropoff == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dropoff address is required")
	}

	scheduleAt := g.now().UTC().Add(time.Hour).Format("2006-01-02T15:04:05Z")
	payload := quoteRequest{Data: quoteData{
		ScheduleAt:  scheduleAt,
		ServiceType: g.serviceType,
		Language:    g.language,
		Stops: []stop{
			{Address: g.pickupAddress},
			{Address: dropoff},
		},
		Item: quoteItem{Quantity: itemQuantity, Weight: itemWeight},
	}}

	raw, err := g.client.Do(ctx, http.MethodPost, quotationsPath, payload)
	if err != nil {
		g.metrics.ObserveQuote("error")
		return nil, err
	}

	quote, err := parseQuote(raw)
	if err != nil {
		g.metrics.ObserveQuote("malformed")
		return nil, err
	}

	g.metrics.ObserveQuote("ok")
	if g.logg != nil {
		logCtx := g.logg.WithFields(ctx, map[string]any{
			"provider":     "lalamove",
			"quotation_id": quote.QuotationID,
			"fee":          quote.Fee.String(),
		})
		g.logg.Info(logCtx, "courier quote priced")
	}
	return quote, nil
}

func parseQuote(raw json.RawMessage) (*Quote, error) {
	var decoded quoteResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode quotation response")
	}
	if decoded.Data.QuotationID == "" || decoded.Data.PriceBreakdown == nil {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "quotation response missing quotationId or priceBreakdown")
	}
	fee, err := decimal.NewFromString(decoded.Data.PriceBreakdown.Total)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "parse quotation total")
	}
	return &Quote{
		Fee:         fee,
		Currency:    decoded.Data.PriceBreakdown.Currency,
		QuotationID: decoded.Data.QuotationID,
	}, nil
}

// BookParams identifies the quotation to place and its contacts.
type BookParams struct {
	QuotationID    string
	SenderName     string
	SenderPhone    string
	RecipientName  string
	RecipientPhone string
	Remarks        string
}

type bookContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type bookRecipient struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Remarks string `json:"remarks,omitempty"`
}

type bookData struct {
	QuotationID string          `json:"quotationId"`
	Sender      bookContact     `json:"sender"`
	Recipients  []bookRecipient `json:"recipients"`
}

type bookRequest struct {
	Data bookData `json:"data"`
}

type bookResponse struct {
	Data struct {
		OrderID  string `json:"orderId"`
		ShareURL string `json:"shareLink"`
	} `json:"data"`
}

// Book places a courier order against a previously priced quotation.
func (g *Gateway) Book(ctx context.Context, params BookParams) (*Booking, error) {
	if strings.TrimSpace(params.QuotationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quotation id is required")
	}

	payload := bookRequest{Data: bookData{
		QuotationID: params.QuotationID,
		Sender:      bookContact{Name: params.SenderName, Phone: params.SenderPhone},
		Recipients: []bookRecipient{{
			Name:    params.RecipientName,
			Phone:   params.RecipientPhone,
			Remarks: params.Remarks,
		}},
	}}

	raw, err := g.client.Do(ctx, http.MethodPost, ordersPath, payload)
	if err != nil {
		return nil, err
	}

	var decoded bookResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode booking response")
	}
	if decoded.Data.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "booking response missing orderId")
	}

	if g.logg != nil {
		logCtx := g.logg.WithField(ctx, "courier_order_id", decoded.Data.OrderID)
		g.logg.Info(logCtx, "courier booking placed")
	}
	return &Booking{OrderID: decoded.Data.OrderID, ShareURL: decoded.Data.ShareURL}, nil
}
