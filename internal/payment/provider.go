package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

var ErrNotConfigured = errors.New("payment provider is not configured")

// CheckoutRequest describes a single line-item hosted checkout.
type CheckoutRequest struct {
	Name        string
	Description string
	// Amount in major currency units.
	Amount     float64
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type Provider interface {
	// CreateCheckoutSession returns the URL the patient is redirected to.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

type stripeProvider struct {
	api      *client.API
	currency string
	cb       *circuitbreaker.CircuitBreaker
}

func NewStripeProvider(cfg config.PaymentConfig, log *logger.Logger) Provider {
	if cfg.StripeSecretKey == "" {
		return disabledProvider{}
	}
	return &stripeProvider{
		api:      client.New(cfg.StripeSecretKey, nil),
		currency: strings.ToLower(cfg.Currency),
		cb:       circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultSettings("stripe"), log),
	}
}

func (p *stripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := sessionParams(req, p.currency)
	params.Context = ctx

	var session *stripe.CheckoutSession
	err := p.cb.Execute(func() error {
		var err error
		session, err = p.api.CheckoutSessions.New(params)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.URL, nil
}

func sessionParams(req CheckoutRequest, currency string) *stripe.CheckoutSessionParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.Name),
	}
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(MinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// MinorUnits converts an amount like 49.99 to 4999.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

type disabledProvider struct{}

func (disabledProvider) CreateCheckoutSession(context.Context, CheckoutRequest) (string, error) {
	return "", ErrNotConfigured
}
