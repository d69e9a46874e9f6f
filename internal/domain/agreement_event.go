package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AgreementEvent is the outbox row written in the same transaction as the
// state change it records, in creation order, for external consumers.
type AgreementEvent struct {
	EventID    uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ContractID uint           `gorm:"column:contract_id;not null;index" json:"contract_id"`
	EventType  string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	ActorID    *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (AgreementEvent) TableName() string {
	return "AgreementEvents"
}

func (e *AgreementEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
