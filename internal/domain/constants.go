package domain

import (
	"fmt"
	"strings"
)

const (
	RoleCreator = "creator"
	RoleBacker  = "backer"
)

// Category tags one of the three project variants.
type Category string

const (
	CategoryFilm  Category = "film"
	CategoryMusic Category = "music"
	CategoryArt   Category = "art"
)

// Categories lists the variants in feed merge order.
var Categories = []Category{CategoryFilm, CategoryMusic, CategoryArt}

// ParseCategory accepts a known tag (case-insensitive) or fails with ErrInvalidCategory.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(s)) {
	case CategoryFilm:
		return CategoryFilm, nil
	case CategoryMusic:
		return CategoryMusic, nil
	case CategoryArt:
		return CategoryArt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// UniqueID disambiguates ids across variant tables once merged into one feed.
func UniqueID(c Category, id uint) string {
	return fmt.Sprintf("%s-%d", c, id)
}

const (
	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

const (
	MediaKindImage = "image"
	MediaKindAudio = "audio"
)

const (
	WebhookEventPaymentCaptured = "payment.captured"
)

const ProviderRazorpay = "razorpay"
