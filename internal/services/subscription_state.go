package services

import (
	"strings"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
)

// Subscription lifecycle actions
const (
	ActionToQuotation = "to_quotation"
	ActionConfirm     = "confirm"
	ActionActivate    = "activate"
	ActionPause       = "pause"
	ActionResume      = "resume"
	ActionClose       = "close"
	ActionCancel      = "cancel"
)

type transition struct {
	from []models.SubscriptionStatus
	to   models.SubscriptionStatus
}

var subscriptionTransitions = map[string]transition{
	ActionToQuotation: {from: []models.SubscriptionStatus{models.SubscriptionDraft}, to: models.SubscriptionQuotation},
	ActionConfirm:     {from: []models.SubscriptionStatus{models.SubscriptionQuotation}, to: models.SubscriptionConfirmed},
	ActionActivate:    {from: []models.SubscriptionStatus{models.SubscriptionConfirmed}, to: models.SubscriptionActive},
	ActionPause:       {from: []models.SubscriptionStatus{models.SubscriptionActive}, to: models.SubscriptionPaused},
	ActionResume:      {from: []models.SubscriptionStatus{models.SubscriptionPaused}, to: models.SubscriptionActive},
	ActionClose:       {from: []models.SubscriptionStatus{models.SubscriptionActive}, to: models.SubscriptionClosed},
	ActionCancel: {
		from: []models.SubscriptionStatus{models.SubscriptionDraft, models.SubscriptionQuotation, models.SubscriptionConfirmed},
		to:   models.SubscriptionClosed,
	},
}

// NextStatus looks up action in the transition table. plan may be nil when
// the caller only needs the status arithmetic.
func NextStatus(action string, current models.SubscriptionStatus, plan *models.RecurringPlan) (models.SubscriptionStatus, error) {
	t, ok := subscriptionTransitions[action]
	if !ok {
		return "", apperror.BadRequest("Invalid action: %s", action)
	}

	allowed := false
	for _, from := range t.from {
		if from == current {
			allowed = true
			break
		}
	}
	if !allowed {
		expected := make([]string, len(t.from))
		for i, from := range t.from {
			expected[i] = string(from)
		}
		return "", apperror.BadRequest("Cannot %s: subscription is in %s status, expected %s",
			action, current, strings.Join(expected, " or "))
	}

	if plan != nil {
		if action == ActionPause && !plan.Pausable {
			return "", apperror.BadRequest("This plan does not allow pausing")
		}
		if action == ActionClose && !plan.Closable {
			return "", apperror.BadRequest("This plan does not allow closing")
		}
	}
	return t.to, nil
}
