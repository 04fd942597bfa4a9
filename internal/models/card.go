package models

import "time"

type CardType string

const (
	CardTypeCredit CardType = "CREDIT"
	CardTypeDebit  CardType = "DEBIT"
)

// Valid reports whether t is a known card type.
func (t CardType) Valid() bool {
	return t == CardTypeCredit || t == CardTypeDebit
}

// Prefix is the issuer prefix of card numbers of this type.
func (t CardType) Prefix() string {
	if t == CardTypeCredit {
		return "5555"
	}
	return "4444"
}

// Brand is the network label printed on cards of this type.
func (t CardType) Brand() string {
	if t == CardTypeCredit {
		return "Mastercard"
	}
	return "Visa"
}

// CardStatus is the lifecycle state of a card. Retired cards keep their rows
// but are invisible to listings and lookups.
type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardRetired CardStatus = "RETIRED"
)

type Card struct {
	ID             string     `json:"id"`
	AccountNumber  string     `json:"accountNumber"`
	CardNumber     string     `json:"cardNumber"`
	CardType       CardType   `json:"cardType"`
	CardholderName string     `json:"cardholderName"`
	CVV            string     `json:"cvv"`
	ExpiryDate     string     `json:"expiryDate"`
	Brand          string     `json:"brand"`
	Status         CardStatus `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// IsActive reports whether the card has not been retired.
func (c *Card) IsActive() bool {
	return c.Status == CardActive
}

// CreateCardParams is the input of the card issuing call.
type CreateCardParams struct {
	CardType       CardType `json:"cardType" validate:"required,oneof=CREDIT DEBIT"`
	CardholderName string   `json:"cardholderName" validate:"required,min=2,max=80"`
	AccountNumber  string   `json:"accountNumber" validate:"required,len=8,numeric"`
}
