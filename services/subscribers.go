package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lborres/bantay/core"
)

// Subscribe adds email to the newsletter. The existence check is bounded;
// when it does not answer in time the caller gets ErrRemoteUnavailable.
func (s *AuthService) Subscribe(ctx context.Context, email string, language core.Language) (*core.Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, core.ErrEmailRequired
	}
	if !validEmail(email) {
		return nil, core.ErrInvalidEmail
	}
	if language == "" {
		language = core.DefaultLanguage
	}
	if !language.Valid() {
		return nil, core.ErrInvalidLanguage
	}

	check := core.CallWithBound(ctx, s.bounds.SubscriberCheck, func(ctx context.Context) (bool, error) {
		return s.subscribers.SubscriberExists(ctx, email)
	})
	s.metrics.ObserveBoundedCall("subscriber_check", check.Outcome.String(), check.Elapsed)

	exists, ok := check.Get()
	if !ok {
		s.log.WarnContext(ctx, "subscriber check unavailable",
			"outcome", check.Outcome.String(), "error", check.Err)
		return nil, core.ErrRemoteUnavailable
	}
	if exists {
		return nil, core.ErrSubscriberExists
	}

	sub := &core.Subscriber{
		Email:    email,
		Date:     time.Now().UTC().Format(time.DateOnly),
		Language: language,
	}
	if err := s.subscribers.AddSubscriber(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to add subscriber: %w", err)
	}
	return sub, nil
}

func (s *AuthService) ListSubscribers(ctx context.Context) ([]core.Subscriber, error) {
	res := core.CallWithBound(ctx, s.bounds.ContentRead, s.subscribers.ListSubscribers)
	s.metrics.ObserveBoundedCall("subscriber_list", res.Outcome.String(), res.Elapsed)

	switch res.Outcome {
	case core.OutcomeTimeout:
		return nil, core.ErrRemoteUnavailable
	case core.OutcomeFailed:
		return nil, fmt.Errorf("failed to list subscribers: %w", res.Err)
	}
	if res.Value == nil {
		return []core.Subscriber{}, nil
	}
	return res.Value, nil
}
