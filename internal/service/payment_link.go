package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	"github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

const (
	defaultProductImg      = "https://live.hyperswitch.io/payment-link-assets/cart_placeholder.png"
	defaultMerchantLogo    = "https://live.hyperswitch.io/payment-link-assets/Merchant_placeholder.png"
	defaultSDKTheme        = "#7EA8F6"
	defaultBackgroundColor = "#212E46"

	maxItemsVisibleAfterCollapse = 3
)

// paymentLinkNotAllowed статусы, в которых страница оплаты не отдаётся
var paymentLinkNotAllowed = confirmNotAllowed

// PaymentLinkConfig настройки страницы оплаты мерчанта
type PaymentLinkConfig struct {
	MerchantLogo string       `json:"merchant_logo,omitempty"`
	ColorScheme  *ColorScheme `json:"color_scheme,omitempty"`
}

// ColorScheme цвета страницы оплаты
type ColorScheme struct {
	BackgroundPrimaryColor string `json:"background_primary_color,omitempty"`
	SDKTheme               string `json:"sdk_theme,omitempty"`
}

// PaymentLinkDetails данные для хостинговой страницы оплаты
type PaymentLinkDetails struct {
	Amount                       int64         `json:"amount"`
	Currency                     string        `json:"currency"`
	PaymentID                    string        `json:"payment_id"`
	MerchantName                 string        `json:"merchant_name"`
	OrderDetails                 []OrderDetail `json:"order_details,omitempty"`
	ReturnURL                    string        `json:"return_url"`
	Expiry                       *time.Time    `json:"expiry,omitempty"`
	PubKey                       string        `json:"pub_key"`
	ClientSecret                 string        `json:"client_secret"`
	MerchantLogo                 string        `json:"merchant_logo"`
	MaxItemsVisibleAfterCollapse int           `json:"max_items_visible_after_collapse"`
	SDKTheme                     string        `json:"sdk_theme,omitempty"`
	BackgroundColor              string        `json:"background_color"`
}

// PaymentLinkDetails собирает данные страницы оплаты для платежа
func (s *Service) PaymentLinkDetails(ctx context.Context, merchant repository.MerchantAccount, paymentID string) (*PaymentLinkDetails, error) {
	store := s.deps.Store

	intent, err := store.FindPaymentIntent(ctx, paymentID, merchant.MerchantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapErr(ErrPaymentNotFound, err)
		}
		return nil, internalError("failed to find payment intent", err)
	}

	if intent.PaymentLinkID == "" {
		return nil, ErrPaymentLinkNotFound
	}

	if err := validateStatusAllowed(intent.Status, paymentLinkNotAllowed, "create payment link"); err != nil {
		return nil, err
	}

	link, err := store.FindPaymentLink(ctx, intent.PaymentLinkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapErr(ErrPaymentLinkNotFound, err)
		}
		return nil, internalError("failed to find payment link", err)
	}

	var cfg *PaymentLinkConfig
	if len(merchant.PaymentLinkConfig) > 0 {
		cfg = &PaymentLinkConfig{}
		if err := json.Unmarshal(merchant.PaymentLinkConfig, cfg); err != nil {
			return nil, invalidDataValue("payment_link_config", err)
		}
	}

	orderDetails, err := s.parseOrderDetails(intent.OrderDetails)
	if err != nil {
		return nil, err
	}

	returnURL := orDefault(intent.ReturnURL, merchant.ReturnURL)
	if returnURL == "" {
		return nil, missingField("return_url")
	}

	switch {
	case merchant.PublishableKey == "":
		return nil, missingField("pub_key")
	case intent.Currency == "":
		return nil, missingField("currency")
	case intent.ClientSecret == "":
		return nil, missingField("client_secret")
	}

	details := &PaymentLinkDetails{
		Amount:                       intent.Amount,
		Currency:                     intent.Currency,
		PaymentID:                    intent.PaymentID,
		MerchantName:                 orDefault(link.CustomMerchantName, merchant.MerchantName),
		OrderDetails:                 orderDetails,
		ReturnURL:                    returnURL,
		Expiry:                       link.FulfilmentTime,
		PubKey:                       merchant.PublishableKey,
		ClientSecret:                 intent.ClientSecret,
		MaxItemsVisibleAfterCollapse: maxItemsVisibleAfterCollapse,
		BackgroundColor:              defaultBackgroundColor,
	}
	if cfg != nil {
		details.MerchantLogo = orDefault(cfg.MerchantLogo, defaultMerchantLogo)
		if cfg.ColorScheme != nil {
			details.SDKTheme = orDefault(cfg.ColorScheme.SDKTheme, defaultSDKTheme)
			details.BackgroundColor = orDefault(cfg.ColorScheme.BackgroundPrimaryColor, defaultBackgroundColor)
		}
	}

	observability.L(ctx, s.logger).Debug("payment link details resolved",
		zap.String("payment_id", intent.PaymentID),
		zap.String("payment_link_id", link.PaymentLinkID),
	)
	return details, nil
}

// PaymentLinkResponse сохранённая ссылка на оплату
type PaymentLinkResponse struct {
	PaymentLinkID string     `json:"payment_link_id"`
	PaymentID     string     `json:"payment_id"`
	MerchantID    string     `json:"merchant_id"`
	LinkToPay     string     `json:"link_to_pay"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LinkExpiry    *time.Time `json:"link_expiry,omitempty"`
}

// RetrievePaymentLink возвращает ссылку на оплату по её id
func (s *Service) RetrievePaymentLink(ctx context.Context, paymentLinkID string) (*PaymentLinkResponse, error) {
	link, err := s.deps.Store.FindPaymentLink(ctx, paymentLinkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapErr(ErrPaymentLinkNotFound, err)
		}
		return nil, internalError("failed to find payment link", err)
	}

	return &PaymentLinkResponse{
		PaymentLinkID: link.PaymentLinkID,
		PaymentID:     link.PaymentID,
		MerchantID:    link.MerchantID,
		LinkToPay:     link.LinkToPay,
		Amount:        link.Amount,
		Currency:      link.Currency,
		CreatedAt:     link.CreatedAt,
		LinkExpiry:    link.FulfilmentTime,
	}, nil
}

// parseOrderDetails разбирает сохранённые позиции заказа и подставляет картинку по умолчанию
func (s *Service) parseOrderDetails(raw []json.RawMessage) ([]OrderDetail, error) {
	if raw == nil {
		return nil, nil
	}
	img := orDefault(s.deps.DefaultProductImg, defaultProductImg)

	out := make([]OrderDetail, 0, len(raw))
	for _, r := range raw {
		var d OrderDetail
		if err := json.Unmarshal(r, &d); err != nil {
			return nil, invalidDataValue("order_details", err)
		}
		if d.ProductImg == "" {
			d.ProductImg = img
		}
		out = append(out, d)
	}
	return out, nil
}
