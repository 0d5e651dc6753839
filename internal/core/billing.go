package core

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
)

// SubscriptionChecker resolves whether a user is a paying subscriber.
type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, email string) bool
}

// StripeBilling looks up an active subscription by customer email. Absence of
// a customer or subscription resolves to "not subscribed", never to an error:
// the limiter must keep working when billing is unreachable.
type StripeBilling struct {
	api    *client.API
	logger *zap.Logger
}

func NewStripeBilling(secretKey string, logger *zap.Logger) *StripeBilling {
	b := &StripeBilling{logger: logger.Named("billing")}
	if secretKey != "" {
		b.api = &client.API{}
		b.api.Init(secretKey, nil)
	}
	return b
}

func (b *StripeBilling) IsSubscribed(ctx context.Context, email string) bool {
	if b.api == nil || email == "" {
		return false
	}

	customerParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	customerParams.Context = ctx
	customerParams.Limit = stripe.Int64(1)
	customers := b.api.Customers.List(customerParams)
	if !customers.Next() {
		if err := customers.Err(); err != nil {
			b.logger.Warn("customer lookup failed", zap.Error(err))
		}
		return false
	}
	customerID := customers.Customer().ID

	subParams := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	subParams.Context = ctx
	subParams.Limit = stripe.Int64(1)
	subscriptions := b.api.Subscriptions.List(subParams)
	if subscriptions.Next() {
		return true
	}
	if err := subscriptions.Err(); err != nil {
		b.logger.Warn("subscription lookup failed", zap.Error(err))
	}
	return false
}
