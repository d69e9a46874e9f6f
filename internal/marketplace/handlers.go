package marketplace

import (
	"context"
	"strconv"
	"time"

	"agrinerds-backend/internal/domain"
	"agrinerds-backend/internal/middleware"
	"agrinerds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// CreateOffer POST /api/v1/marketplace/create-offer (farmer)
func (h *Handlers) CreateOffer(c *fiber.Ctx) error {
	var body struct {
		SellerName       string    `json:"seller_name"`
		Crop             CropInput `json:"crop"`
		DeliveryDeadline int64     `json:"delivery_deadline"`
		InsuranceDetails string    `json:"insurance_details"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if body.SellerName == "" || body.Crop.Name == "" || body.Crop.Unit == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	contract, err := h.Service.CreateOffer(c.Context(), actor.UserID, body.SellerName, body.Crop,
		time.Unix(body.DeliveryDeadline, 0), body.InsuranceDetails)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Offer created successfully", contract, nil)
}

// CreateRequest POST /api/v1/marketplace/create-request (company)
func (h *Handlers) CreateRequest(c *fiber.Ctx) error {
	var body struct {
		BuyerName        string    `json:"buyer_name"`
		Crop             CropInput `json:"crop"`
		DeliveryDeadline int64     `json:"delivery_deadline"`
		InsuranceDetails string    `json:"insurance_details"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if body.BuyerName == "" || body.Crop.Name == "" || body.Crop.Unit == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	contract, err := h.Service.CreateRequest(c.Context(), actor.UserID, body.BuyerName, body.Crop,
		time.Unix(body.DeliveryDeadline, 0), body.InsuranceDetails)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Request created successfully", contract, nil)
}

// AcceptOffer POST /api/v1/marketplace/accept-offer (company)
func (h *Handlers) AcceptOffer(c *fiber.Ctx) error {
	var body struct {
		ContractID uint   `json:"contract_id"`
		BuyerName  string `json:"buyer_name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if body.ContractID == 0 || body.BuyerName == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	contract, err := h.Service.AcceptOffer(c.Context(), actor.UserID, body.ContractID, body.BuyerName)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Offer accepted successfully", contract, nil)
}

// SubmitCommitment POST /api/v1/marketplace/submit-commitment (farmer)
func (h *Handlers) SubmitCommitment(c *fiber.Ctx) error {
	var body struct {
		RequestID        uint   `json:"request_id"`
		SellerName       string `json:"seller_name"`
		Quantity         int64  `json:"quantity"`
		InsuranceDetails string `json:"insurance_details"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if body.RequestID == 0 || body.SellerName == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	contract, err := h.Service.SubmitCommitment(c.Context(), actor.UserID, body.RequestID, body.SellerName,
		body.Quantity, body.InsuranceDetails)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Commitment submitted successfully", contract, nil)
}

// AcceptCommitment POST /api/v1/marketplace/accept-commitment (company)
func (h *Handlers) AcceptCommitment(c *fiber.Ctx) error {
	var body struct {
		ContractID uint `json:"contract_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if body.ContractID == 0 {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	contract, err := h.Service.AcceptCommitment(c.Context(), actor.UserID, body.ContractID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Commitment accepted successfully", contract, nil)
}

// ConfirmDelivery POST /api/v1/marketplace/confirm-delivery
func (h *Handlers) ConfirmDelivery(c *fiber.Ctx) error {
	return h.transition(c, "Delivery confirmed", h.Service.ConfirmDelivery)
}

// ConfirmPayment POST /api/v1/marketplace/confirm-payment
func (h *Handlers) ConfirmPayment(c *fiber.Ctx) error {
	return h.transition(c, "Payment confirmed", h.Service.ConfirmPaymentReceived)
}

// CancelContract POST /api/v1/marketplace/cancel-contract
func (h *Handlers) CancelContract(c *fiber.Ctx) error {
	return h.transition(c, "Contract cancelled", h.Service.CancelContract)
}

// GetContract GET /api/v1/marketplace/get-contract/:contract_id
func (h *Handlers) GetContract(c *fiber.Ctx) error {
	id, err := parseContractID(c.Params("contract_id"))
	if err != nil {
		return response.Error(c, "Invalid contract_id", fiber.StatusBadRequest, nil)
	}
	contract, err := h.Service.GetContract(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Contract fetched successfully", contract, nil)
}

// GetCommitments GET /api/v1/marketplace/get-commitments/:request_id
func (h *Handlers) GetCommitments(c *fiber.Ctx) error {
	id, err := parseContractID(c.Params("request_id"))
	if err != nil {
		return response.Error(c, "Invalid request_id", fiber.StatusBadRequest, nil)
	}
	commitments, err := h.Service.CommitmentsForRequest(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Commitments fetched successfully", commitments, nil)
}

// GetSellerContracts GET /api/v1/marketplace/get-seller-contracts/:user_id
func (h *Handlers) GetSellerContracts(c *fiber.Ctx) error {
	sellerID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for user_id", fiber.StatusBadRequest, nil)
	}
	contracts, err := h.Service.ContractsForSeller(c.Context(), sellerID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Contracts fetched successfully", contracts, nil)
}

// GetBuyerContracts GET /api/v1/marketplace/get-buyer-contracts/:user_id
func (h *Handlers) GetBuyerContracts(c *fiber.Ctx) error {
	buyerID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for user_id", fiber.StatusBadRequest, nil)
	}
	contracts, err := h.Service.ContractsForBuyer(c.Context(), buyerID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Contracts fetched successfully", contracts, nil)
}

// GetOpenOffers GET /api/v1/marketplace/get-open-offers
func (h *Handlers) GetOpenOffers(c *fiber.Ctx) error {
	contracts, err := h.Service.OpenOffers(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Offers fetched successfully", contracts, nil)
}

// GetOpenRequests GET /api/v1/marketplace/get-open-requests
func (h *Handlers) GetOpenRequests(c *fiber.Ctx) error {
	contracts, err := h.Service.OpenRequests(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Requests fetched successfully", contracts, nil)
}

// GetEvents GET /api/v1/marketplace/get-events/:contract_id
func (h *Handlers) GetEvents(c *fiber.Ctx) error {
	id, err := parseContractID(c.Params("contract_id"))
	if err != nil {
		return response.Error(c, "Invalid contract_id", fiber.StatusBadRequest, nil)
	}
	events, err := h.Service.EventsForContract(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Events fetched successfully", events, nil)
}

type transitionOp func(ctx context.Context, actor uuid.UUID, contractID uint) (*domain.Agreement, error)

// transition handles the shared body shape of confirm-delivery,
// confirm-payment and cancel-contract.
func (h *Handlers) transition(c *fiber.Ctx, message string, op transitionOp) error {
	var body struct {
		ContractID uint `json:"contract_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if body.ContractID == 0 {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	contract, err := op(c.Context(), actor.UserID, body.ContractID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, message, contract, nil)
}

func parseContractID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}

// fail maps a service error onto the standard error envelope.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case IsInvalidInput(err):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case IsNotFound(err):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case IsUnauthorized(err):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case IsInvalidTransition(err):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
