package models

import (
	"time"

	"github.com/goccy/go-json"
)

type TransactionType string

const (
	TransactionPurchase            TransactionType = "purchase"
	TransactionImageTransformation TransactionType = "image-transformation"
)

type StyleKey string

const (
	StyleGhibli     StyleKey = "ghibli"
	StylePixar      StyleKey = "pixar"
	StyleAnime      StyleKey = "anime"
	StyleWatercolor StyleKey = "watercolor"
)

// User is keyed by the caller-supplied identifier. Attributes hold the
// free-form profile fields sent on creation.
type User struct {
	ID         string
	Credits    int
	Attributes map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MarshalJSON flattens attributes next to the fixed fields so the frontend
// sees a single document.
func (u User) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(u.Attributes)+4)
	for k, v := range u.Attributes {
		doc[k] = v
	}
	doc["id"] = u.ID
	doc["credits"] = u.Credits
	doc["createdAt"] = u.CreatedAt
	doc["updatedAt"] = u.UpdatedAt
	return json.Marshal(doc)
}

type ImageRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Prompt         string    `json:"prompt"`
	EnhancedPrompt string    `json:"enhancedPrompt"`
	Description    string    `json:"description"`
	OriginalURL    string    `json:"originalImageUrl"`
	Style          StyleKey  `json:"style"`
	DetailLevel    int       `json:"detailLevel"`
	ResultURL      string    `json:"imageUrl"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Transaction struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Amount     int             `json:"amount"`
	Type       TransactionType `json:"type"`
	OrderID    *string         `json:"orderId,omitempty"`
	PaymentID  *string         `json:"paymentId,omitempty"`
	ImageID    *string         `json:"imageId,omitempty"`
	AmountPaid *int            `json:"amountPaid,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
