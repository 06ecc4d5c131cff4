// Package billing keeps the premium flag in sync with Stripe.
package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"

	"github.com/jimdaga/interview-ace/internal/models"
)

// maxBodyBytes matches Stripe's recommended webhook body limit.
const maxBodyBytes = int64(65536)

// Handled event types.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// errUserNotFound means an event could not be matched to a user.
var errUserNotFound = errors.New("no user matches stripe event")

// WebhookHandler verifies and applies Stripe webhook events.
func WebhookHandler(db *gorm.DB, secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing not configured"})
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			logger.Warn("Stripe webhook signature rejected", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		if err := Apply(db, event); err != nil {
			if errors.Is(err, errUserNotFound) {
				// Acknowledge so Stripe stops retrying an event we can never match
				logger.Warn("Stripe event ignored", "event_id", event.ID, "type", event.Type, "error", err)
				c.JSON(http.StatusOK, gin.H{"received": true})
				return
			}
			logger.Error("Failed to apply stripe event", "event_id", event.ID, "type", event.Type, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
			return
		}

		logger.Info("Stripe event processed", "event_id", event.ID, "type", event.Type)
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// Apply updates the user referenced by event. Unhandled types are ignored.
func Apply(db *gorm.DB, event stripe.Event) error {
	if event.Data == nil {
		return fmt.Errorf("stripe event %s has no data", event.ID)
	}

	switch event.Type {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to decode checkout session: %w", err)
		}
		return activate(db, session)

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to decode subscription: %w", err)
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return fmt.Errorf("%w: subscription without customer", errUserNotFound)
		}
		premium := event.Type == EventSubscriptionUpdated && subscriptionActive(sub.Status)
		return setPremiumByCustomer(db, sub.Customer.ID, premium)
	}
	return nil
}

func activate(db *gorm.DB, session stripe.CheckoutSession) error {
	var user models.User
	err := gorm.ErrRecordNotFound

	if id, convErr := strconv.ParseUint(session.ClientReferenceID, 10, 64); convErr == nil {
		err = db.First(&user, uint(id)).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if email := sessionEmail(session); email != "" {
			err = db.Where("email = ?", email).First(&user).Error
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: checkout session %s", errUserNotFound, session.ID)
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"is_premium": true}
	if session.Customer != nil && session.Customer.ID != "" {
		updates["stripe_customer_id"] = session.Customer.ID
	}
	return db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error
}

func setPremiumByCustomer(db *gorm.DB, customerID string, premium bool) error {
	result := db.Model(&models.User{}).
		Where("stripe_customer_id = ?", customerID).
		Update("is_premium", premium)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: customer %s", errUserNotFound, customerID)
	}
	return nil
}

func sessionEmail(session stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}

func subscriptionActive(status stripe.SubscriptionStatus) bool {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing, stripe.SubscriptionStatusPastDue:
		return true
	}
	return false
}
