package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contract types. The type is fixed at creation and never changes.
const (
	TypeOffer      = "offer"      // farmer-initiated; buyer slot open
	TypeRequest    = "request"    // company-initiated; seller slot open
	TypeCommitment = "commitment" // farmer response to a specific request
)

// Contract statuses. Transitions are validated by marketplace.CanTransition;
// no other status mutation is permitted.
const (
	StatusPending           = "pending"
	StatusAgreed            = "agreed"
	StatusDeliveryConfirmed = "delivery_confirmed"
	StatusCompleted         = "completed"
	StatusCancelled         = "cancelled"
)

// Crop is the crop lot embedded in an agreement. Immutable once embedded.
type Crop struct {
	Name         string `gorm:"column:crop_name;not null" json:"name"`
	Quantity     int64  `gorm:"column:crop_quantity;not null" json:"quantity"`
	Unit         string `gorm:"column:crop_unit;not null" json:"unit"`
	PricePerUnit int64  `gorm:"column:crop_price_per_unit;not null" json:"price_per_unit"`
}

// Agreement is the unifying record for offers, requests and commitments,
// tracked through one shared status lifecycle. Rows are never deleted;
// cancelled and completed agreements remain queryable.
type Agreement struct {
	ContractID       uint       `gorm:"column:contract_id;primaryKey;autoIncrement" json:"contract_id"`
	ContractType     string     `gorm:"column:contract_type;type:varchar(20);not null" json:"contract_type"`
	Status           string     `gorm:"column:status;type:varchar(30);not null;default:'pending'" json:"status"`
	SellerID         *uuid.UUID `gorm:"column:seller_id;type:uuid;index" json:"seller_id"`
	SellerName       string     `gorm:"column:seller_name" json:"seller_name"`
	BuyerID          *uuid.UUID `gorm:"column:buyer_id;type:uuid;index" json:"buyer_id"`
	BuyerName        string     `gorm:"column:buyer_name" json:"buyer_name"`
	Crop             Crop       `gorm:"embedded" json:"crop"`
	DeliveryDeadline time.Time  `gorm:"column:delivery_deadline" json:"delivery_deadline"`
	InsuranceDetails string     `gorm:"column:insurance_details" json:"insurance_details"`
	ParentRequestID  *uint      `gorm:"column:parent_request_id;index" json:"parent_request_id"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (Agreement) TableName() string {
	return "Agreements"
}

// SellerIs reports whether the bound seller equals id. False when unbound.
func (a *Agreement) SellerIs(id uuid.UUID) bool {
	return a.SellerID != nil && *a.SellerID == id
}

// BuyerIs reports whether the bound buyer equals id. False when unbound.
func (a *Agreement) BuyerIs(id uuid.UUID) bool {
	return a.BuyerID != nil && *a.BuyerID == id
}

// Party reports whether id is the bound seller or buyer.
func (a *Agreement) Party(id uuid.UUID) bool {
	return a.SellerIs(id) || a.BuyerIs(id)
}
