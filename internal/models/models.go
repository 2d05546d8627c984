// Package models defines the domain entities for the card generator.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the only currency the gateway charges in.
const Currency = "RUB"

// FreeRequests is the lifetime number of free generations per user.
const FreeRequests = 3

// ContentType selects what the generator works from.
type ContentType string

// Supported content types for a generation request.
const (
	ContentTypeImageOnly ContentType = "image_only"
	ContentTypeTextOnly  ContentType = "text_only"
	ContentTypeBoth      ContentType = "both"
)

// Valid reports whether the content type is one of the supported values.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeImageOnly, ContentTypeTextOnly, ContentTypeBoth:
		return true
	}
	return false
}

// SupportedImageExtensions lists accepted product photo formats.
var SupportedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// User represents a Telegram user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscription is the per-user request ledger.
type Subscription struct {
	UserID      int64
	Plan        string // plan code, "" when no plan is active
	FreeUsed    int
	ExtraRemain int
	PlanRemain  int
	NextResetAt time.Time // zero when no plan is active
	UpdatedAt   time.Time
}

// Remaining returns the total number of generations the user can still run.
func (s *Subscription) Remaining() int {
	freeLeft := FreeRequests - s.FreeUsed
	if freeLeft < 0 {
		freeLeft = 0
	}
	return freeLeft + s.ExtraRemain + s.PlanRemain
}

// FreeLeft returns the unused portion of the lifetime free quota.
func (s *Subscription) FreeLeft() int {
	if s.FreeUsed >= FreeRequests {
		return 0
	}
	return FreeRequests - s.FreeUsed
}

// Payment statuses. The first two are local; the last two mirror the
// gateway's terminal statuses.
const (
	PaymentStatusNew       = "new"
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusCanceled  = "canceled"
)

// PaymentKind distinguishes plan purchases from one-time request top-ups.
const (
	PaymentKindPlan    = "plan"
	PaymentKindOneTime = "one_time"
)

// Payment is a purchase tracked against the gateway.
type Payment struct {
	ID              int64
	UserID          int64
	GatewayID       string
	Kind            string
	PlanCode        string
	Amount          decimal.Decimal
	Status          string
	ConfirmationURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Card is the generated marketplace product card.
type Card struct {
	Title               string   `json:"title"`
	ShortDescription    string   `json:"short_description"`
	DetailedDescription string   `json:"detailed_description"`
	Features            []string `json:"features"`
	SEOKeywords         []string `json:"seo_keywords"`
	TargetAudience      []string `json:"target_audience"`
}
