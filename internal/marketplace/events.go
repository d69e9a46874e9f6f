package marketplace

import (
	"context"
	"encoding/json"

	"agrinerds-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types recorded in the AgreementEvents outbox.
const (
	EventOfferCreated        = "OFFER_CREATED"
	EventRequestCreated      = "REQUEST_CREATED"
	EventCommitmentSubmitted = "COMMITMENT_SUBMITTED"
	EventOfferAccepted       = "OFFER_ACCEPTED"
	EventCommitmentAccepted  = "COMMITMENT_ACCEPTED"
	EventDeliveryConfirmed   = "DELIVERY_CONFIRMED"
	EventPaymentConfirmed    = "PAYMENT_CONFIRMED"
	EventContractCancelled   = "CONTRACT_CANCELLED"
)

// appendEvent writes an outbox row inside the caller's transaction so the
// event is never visible without the state change it records (and vice versa).
func appendEvent(tx *gorm.DB, contractID uint, eventType string, actor uuid.UUID, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["contract_id"] = contractID
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.Create(&domain.AgreementEvent{
		ContractID: contractID,
		EventType:  eventType,
		EventData:  datatypes.JSON(b),
		ActorID:    &actor,
	}).Error
}

// EventsForContract returns the contract's events in the order they were recorded.
func (s *Service) EventsForContract(ctx context.Context, contractID uint) ([]domain.AgreementEvent, error) {
	var events []domain.AgreementEvent
	if err := s.DB.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
