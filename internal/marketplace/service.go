package marketplace

import (
	"context"
	"errors"
	"time"

	"agrinerds-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Name is the marketplace display name, surfaced on the root endpoint.
const Name = "AgriNerds Marketplace"

// Service owns the agreement registry. Every mutating operation runs in a
// single transaction with the target row locked, so the first caller to move
// a pending contract out of pending wins and later callers fail
// deterministically with ErrIncorrectContractStatus.
type Service struct {
	DB *gorm.DB
}

// CropInput is the crop lot supplied at offer/request creation.
type CropInput struct {
	Name         string `json:"name"`
	Quantity     int64  `json:"quantity"`
	Unit         string `json:"unit"`
	PricePerUnit int64  `json:"price_per_unit"`
}

// CreateOffer registers a farmer-initiated offer. The caller is bound as
// seller; the buyer slot stays open until acceptance.
func (s *Service) CreateOffer(ctx context.Context, actor uuid.UUID, sellerName string, crop CropInput, deadline time.Time, insurance string) (*domain.Agreement, error) {
	if err := validateCrop(crop); err != nil {
		return nil, err
	}
	a := &domain.Agreement{
		ContractType: domain.TypeOffer,
		Status:       domain.StatusPending,
		SellerID:     &actor,
		SellerName:   sellerName,
		Crop: domain.Crop{
			Name:         crop.Name,
			Quantity:     crop.Quantity,
			Unit:         crop.Unit,
			PricePerUnit: crop.PricePerUnit,
		},
		DeliveryDeadline: deadline,
		InsuranceDetails: insurance,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		return appendEvent(tx, a.ContractID, EventOfferCreated, actor, map[string]interface{}{
			"status":    a.Status,
			"crop_name": a.Crop.Name,
			"quantity":  a.Crop.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", a.ContractID).Str("type", a.ContractType).Msg("Offer created")
	return a, nil
}

// CreateRequest registers a company-initiated request. The caller is bound
// as buyer; the seller slot is filled through commitments.
func (s *Service) CreateRequest(ctx context.Context, actor uuid.UUID, buyerName string, crop CropInput, deadline time.Time, insurance string) (*domain.Agreement, error) {
	if err := validateCrop(crop); err != nil {
		return nil, err
	}
	a := &domain.Agreement{
		ContractType: domain.TypeRequest,
		Status:       domain.StatusPending,
		BuyerID:      &actor,
		BuyerName:    buyerName,
		Crop: domain.Crop{
			Name:         crop.Name,
			Quantity:     crop.Quantity,
			Unit:         crop.Unit,
			PricePerUnit: crop.PricePerUnit,
		},
		DeliveryDeadline: deadline,
		InsuranceDetails: insurance,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		return appendEvent(tx, a.ContractID, EventRequestCreated, actor, map[string]interface{}{
			"status":    a.Status,
			"crop_name": a.Crop.Name,
			"quantity":  a.Crop.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", a.ContractID).Str("type", a.ContractType).Msg("Request created")
	return a, nil
}

// AcceptOffer binds the caller as buyer of a pending offer and moves it to
// agreed. Acceptance is exclusive: once an offer leaves pending, later
// accept attempts fail with ErrIncorrectContractStatus.
func (s *Service) AcceptOffer(ctx context.Context, actor uuid.UUID, offerID uint, buyerName string) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockContract(tx, offerID)
		if err != nil {
			return err
		}
		if a.ContractType != domain.TypeOffer {
			return ErrNotAnOffer
		}
		if err := checkTransition(a, domain.StatusAgreed); err != nil {
			return err
		}
		if a.BuyerID != nil {
			return ErrIncorrectContractStatus
		}
		a.Status = domain.StatusAgreed
		a.BuyerID = &actor
		a.BuyerName = buyerName
		if err := tx.Save(a).Error; err != nil {
			return err
		}
		out = a
		return appendEvent(tx, a.ContractID, EventOfferAccepted, actor, map[string]interface{}{
			"status":     a.Status,
			"buyer_name": buyerName,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", out.ContractID).Str("status", out.Status).Msg("Offer accepted")
	return out, nil
}

// SubmitCommitment creates a new commitment against a pending request. The
// commitment carries its own quantity and insurance terms but inherits the
// crop name, unit, price and deadline from the request. The request itself
// stays pending.
func (s *Service) SubmitCommitment(ctx context.Context, actor uuid.UUID, requestID uint, sellerName string, quantity int64, insurance string) (*domain.Agreement, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	var out *domain.Agreement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := lockContract(tx, requestID)
		if err != nil {
			return err
		}
		if req.ContractType != domain.TypeRequest {
			return ErrNotARequest
		}
		if req.Status != domain.StatusPending {
			return ErrIncorrectContractStatus
		}
		c := &domain.Agreement{
			ContractType: domain.TypeCommitment,
			Status:       domain.StatusPending,
			SellerID:     &actor,
			SellerName:   sellerName,
			Crop: domain.Crop{
				Name:         req.Crop.Name,
				Quantity:     quantity,
				Unit:         req.Crop.Unit,
				PricePerUnit: req.Crop.PricePerUnit,
			},
			DeliveryDeadline: req.DeliveryDeadline,
			InsuranceDetails: insurance,
			ParentRequestID:  &req.ContractID,
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		out = c
		return appendEvent(tx, c.ContractID, EventCommitmentSubmitted, actor, map[string]interface{}{
			"status":     c.Status,
			"request_id": req.ContractID,
			"quantity":   quantity,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", out.ContractID).Uint("request_id", requestID).Msg("Commitment submitted")
	return out, nil
}

// AcceptCommitment moves a pending commitment to agreed. Only the buyer of
// the parent request may accept; their identity and display name are bound
// onto the commitment.
func (s *Service) AcceptCommitment(ctx context.Context, actor uuid.UUID, commitmentID uint) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockContract(tx, commitmentID)
		if err != nil {
			return err
		}
		if c.ContractType != domain.TypeCommitment || c.ParentRequestID == nil {
			return ErrNotACommitment
		}
		if err := checkTransition(c, domain.StatusAgreed); err != nil {
			return err
		}
		var req domain.Agreement
		if err := tx.Where("contract_id = ?", *c.ParentRequestID).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return err
		}
		if !req.BuyerIs(actor) {
			return ErrNotAuthorized
		}
		c.Status = domain.StatusAgreed
		c.BuyerID = req.BuyerID
		c.BuyerName = req.BuyerName
		if err := tx.Save(c).Error; err != nil {
			return err
		}
		out = c
		return appendEvent(tx, c.ContractID, EventCommitmentAccepted, actor, map[string]interface{}{
			"status":     c.Status,
			"request_id": *c.ParentRequestID,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", out.ContractID).Str("status", out.Status).Msg("Commitment accepted")
	return out, nil
}

// ConfirmDelivery records delivery. Only the bound buyer of an agreed
// contract may confirm.
func (s *Service) ConfirmDelivery(ctx context.Context, actor uuid.UUID, contractID uint) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockContract(tx, contractID)
		if err != nil {
			return err
		}
		if err := checkTransition(a, domain.StatusDeliveryConfirmed); err != nil {
			return err
		}
		if !a.BuyerIs(actor) {
			return ErrNotAuthorized
		}
		a.Status = domain.StatusDeliveryConfirmed
		if err := tx.Save(a).Error; err != nil {
			return err
		}
		out = a
		return appendEvent(tx, a.ContractID, EventDeliveryConfirmed, actor, map[string]interface{}{
			"status": a.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", out.ContractID).Str("status", out.Status).Msg("Delivery confirmed")
	return out, nil
}

// ConfirmPaymentReceived records the seller's payment confirmation and
// completes the contract. There is no separate persisted payment_confirmed
// status; the seller's confirmation is the final transition.
func (s *Service) ConfirmPaymentReceived(ctx context.Context, actor uuid.UUID, contractID uint) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockContract(tx, contractID)
		if err != nil {
			return err
		}
		if err := checkTransition(a, domain.StatusCompleted); err != nil {
			return err
		}
		if !a.SellerIs(actor) {
			return ErrNotAuthorized
		}
		a.Status = domain.StatusCompleted
		if err := tx.Save(a).Error; err != nil {
			return err
		}
		out = a
		return appendEvent(tx, a.ContractID, EventPaymentConfirmed, actor, map[string]interface{}{
			"status": a.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", out.ContractID).Str("status", out.Status).Msg("Payment confirmed")
	return out, nil
}

// CancelContract cancels a pending contract. Only a bound party may cancel,
// and only while the contract is still pending.
func (s *Service) CancelContract(ctx context.Context, actor uuid.UUID, contractID uint) (*domain.Agreement, error) {
	var out *domain.Agreement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := lockContract(tx, contractID)
		if err != nil {
			return err
		}
		if err := checkTransition(a, domain.StatusCancelled); err != nil {
			return err
		}
		if !a.Party(actor) {
			return ErrNotAuthorized
		}
		a.Status = domain.StatusCancelled
		if err := tx.Save(a).Error; err != nil {
			return err
		}
		out = a
		return appendEvent(tx, a.ContractID, EventContractCancelled, actor, map[string]interface{}{
			"status": a.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("contract_id", out.ContractID).Str("status", out.Status).Msg("Contract cancelled")
	return out, nil
}

// GetContract fetches one agreement by id.
func (s *Service) GetContract(ctx context.Context, contractID uint) (*domain.Agreement, error) {
	var a domain.Agreement
	if err := s.DB.WithContext(ctx).Where("contract_id = ?", contractID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CommitmentsForRequest returns the commitments submitted against a request,
// in submission order. Empty slice when there are none.
func (s *Service) CommitmentsForRequest(ctx context.Context, requestID uint) ([]domain.Agreement, error) {
	var commitments []domain.Agreement
	if err := s.DB.WithContext(ctx).
		Where("parent_request_id = ?", requestID).
		Order("contract_id ASC").
		Find(&commitments).Error; err != nil {
		return nil, err
	}
	return commitments, nil
}

// ContractsForSeller returns agreements where sellerID is bound as seller,
// in creation order.
func (s *Service) ContractsForSeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Agreement, error) {
	var contracts []domain.Agreement
	if err := s.DB.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("contract_id ASC").
		Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

// ContractsForBuyer returns agreements where buyerID is bound as buyer,
// in creation order.
func (s *Service) ContractsForBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.Agreement, error) {
	var contracts []domain.Agreement
	if err := s.DB.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("contract_id ASC").
		Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

// OpenOffers returns pending offers for the browse surface, newest first.
func (s *Service) OpenOffers(ctx context.Context) ([]domain.Agreement, error) {
	var contracts []domain.Agreement
	if err := s.DB.WithContext(ctx).
		Where("contract_type = ? AND status = ?", domain.TypeOffer, domain.StatusPending).
		Order("created_at DESC").
		Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

// OpenRequests returns pending requests for the browse surface, newest first.
func (s *Service) OpenRequests(ctx context.Context) ([]domain.Agreement, error) {
	var contracts []domain.Agreement
	if err := s.DB.WithContext(ctx).
		Where("contract_type = ? AND status = ?", domain.TypeRequest, domain.StatusPending).
		Order("created_at DESC").
		Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func validateCrop(crop CropInput) error {
	if crop.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if crop.PricePerUnit <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// lockContract loads an agreement with a row lock so concurrent acceptors
// of the same contract serialize; the second observes the mutated status.
// SQLite serializes writers on its own and rejects FOR UPDATE, so the
// locking clause is applied on Postgres only.
func lockContract(tx *gorm.DB, contractID uint) (*domain.Agreement, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var a domain.Agreement
	if err := q.
		Where("contract_id = ?", contractID).
		First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return &a, nil
}
