package models

import "time"

// LoyaltyCard is the second stored entity type. Structurally analogous to a
// receipt but without the upload pipeline: card images, when present, are
// written synchronously by the submission flow.
type LoyaltyCard struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Notes            string `json:"notes,omitempty"`
	BarcodeType      string `json:"barcodeType"`
	BarcodeValue     string `json:"barcodeValue"`
	CoverColor       int    `json:"coverColor"`
	BarcodeFullWidth bool   `json:"barcodeFullWidth"`
	CardImageRef     string `json:"cardImageRef,omitempty"`
	SortOrder        int    `json:"sortOrder"`
	CreatedAt        int64  `json:"createdAt"`
}

// NewLoyaltyCard fills in the creation timestamp.
func NewLoyaltyCard(id, name, barcodeType, barcodeValue string) LoyaltyCard {
	return LoyaltyCard{
		ID:               id,
		Name:             name,
		BarcodeType:      barcodeType,
		BarcodeValue:     barcodeValue,
		BarcodeFullWidth: true,
		CreatedAt:        time.Now().UnixMilli(),
	}
}
