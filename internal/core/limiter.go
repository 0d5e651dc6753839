package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MessageCounter is the storage contract for the daily quota: a single atomic
// check-and-increment per (user, day).
type MessageCounter interface {
	IncrementMessageCount(ctx context.Context, userID, day string, limit int) (count int, allowed bool, err error)
}

// QuotaDecision reports the outcome of one inbound message attempt.
type QuotaDecision struct {
	Allowed      bool
	Subscribed   bool
	MessagesUsed int
	Remaining    int
}

// EntitlementService enforces the daily free-message quota. Subscribers
// bypass counting entirely; storage failures fail open because availability
// matters more than strict enforcement of this limit.
type EntitlementService struct {
	counter    MessageCounter
	billing    SubscriptionChecker
	dailyLimit int
	logger     *zap.Logger
	now        func() time.Time
}

func NewEntitlementService(counter MessageCounter, billing SubscriptionChecker, dailyLimit int, logger *zap.Logger) *EntitlementService {
	return &EntitlementService{
		counter:    counter,
		billing:    billing,
		dailyLimit: dailyLimit,
		logger:     logger.Named("entitlement"),
		now:        time.Now,
	}
}

// Check decides whether this message attempt may proceed. For non-subscribers
// the counter is incremented as part of the check; a rejected attempt leaves
// it unchanged.
func (s *EntitlementService) Check(ctx context.Context, userID, email string) QuotaDecision {
	if s.billing.IsSubscribed(ctx, email) {
		return QuotaDecision{Allowed: true, Subscribed: true}
	}

	day := s.now().UTC().Format("2006-01-02")
	count, allowed, err := s.counter.IncrementMessageCount(ctx, userID, day, s.dailyLimit)
	if err != nil {
		s.logger.Warn("quota check failed, failing open",
			zap.String("user_id", userID),
			zap.Error(err))
		return QuotaDecision{Allowed: true, Remaining: s.dailyLimit}
	}

	remaining := s.dailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return QuotaDecision{
		Allowed:      allowed,
		MessagesUsed: count,
		Remaining:    remaining,
	}
}
