package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category groups stock items.
type Category string

const (
	CategoryBicycle   Category = "bicycle"
	CategorySparePart Category = "spare_part"
)

// UnitType is the unit an item is counted in.
type UnitType string

const (
	UnitPiece  UnitType = "piece"
	UnitSet    UnitType = "set"
	UnitPair   UnitType = "pair"
	UnitDozen  UnitType = "dozen"
	UnitPacket UnitType = "packet"
)

// StockType distinguishes loose parts from parts fitted on assembled bicycles.
type StockType string

const (
	StockLoose  StockType = "loose"
	StockFitted StockType = "fitted"
)

// InventoryItem is a stocked product. QuantityAvailable only changes through
// audited movements that append a StockHistoryEntry.
type InventoryItem struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	ItemName          string              `bson:"itemName" json:"itemName"`
	Category          Category            `bson:"category" json:"category"`
	UnitType          UnitType            `bson:"unitType" json:"unitType"`
	BundleCount       int                 `bson:"bundleCount" json:"bundleCount"`
	QuantityAvailable int                 `bson:"quantityAvailable" json:"quantityAvailable"`
	StockType         StockType           `bson:"stockType,omitempty" json:"stockType,omitempty"`
	PurchasePrice     float64             `bson:"purchasePrice" json:"purchasePrice"`
	SellingPrice      float64             `bson:"sellingPrice" json:"sellingPrice"`
	PartyID           *primitive.ObjectID `bson:"partyId,omitempty" json:"partyId,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CreateInventoryItemInput is the body of POST /inventory.
type CreateInventoryItemInput struct {
	ItemName          string    `json:"itemName" validate:"required"`
	Category          Category  `json:"category" validate:"required,oneof=bicycle spare_part"`
	UnitType          UnitType  `json:"unitType" validate:"required,oneof=piece set pair dozen packet"`
	BundleCount       int       `json:"bundleCount" validate:"gte=0"`
	QuantityAvailable int       `json:"quantityAvailable" validate:"gte=0"`
	StockType         StockType `json:"stockType" validate:"omitempty,oneof=loose fitted"`
	PurchasePrice     float64   `json:"purchasePrice" validate:"gte=0"`
	SellingPrice      float64   `json:"sellingPrice" validate:"gte=0"`
	PartyID           string    `json:"partyId" validate:"omitempty,mongodb"`
}

// Build validates the input and produces a new item with zero stock; the opening
// quantity is applied by the caller as an audited movement.
func (in CreateInventoryItemInput) Build(now time.Time) (*InventoryItem, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	partyID, err := parseOptionalID("partyId", in.PartyID)
	if err != nil {
		return nil, err
	}

	bundle := in.BundleCount
	if bundle == 0 {
		bundle = 1
	}

	return &InventoryItem{
		ID:            primitive.NewObjectID(),
		ItemName:      strings.TrimSpace(in.ItemName),
		Category:      in.Category,
		UnitType:      in.UnitType,
		BundleCount:   bundle,
		StockType:     in.StockType,
		PurchasePrice: in.PurchasePrice,
		SellingPrice:  in.SellingPrice,
		PartyID:       partyID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// StockAdjustmentInput is the body of POST /inventory/adjust.
type StockAdjustmentInput struct {
	ItemID     string `json:"itemId" validate:"required,mongodb"`
	Adjustment int    `json:"adjustment" validate:"ne=0"`
	Reason     string `json:"reason" validate:"required"`
}

// StockHistoryEntry is one immutable line of an item's stock audit trail.
type StockHistoryEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ItemID      primitive.ObjectID `bson:"itemId" json:"itemId"`
	Change      int                `bson:"change" json:"change"`
	Reason      string             `bson:"reason" json:"reason"`
	PreviousQty int                `bson:"previousQty" json:"previousQty"`
	NewQty      int                `bson:"newQty" json:"newQty"`
	Date        time.Time          `bson:"date" json:"date"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
