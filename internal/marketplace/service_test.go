package marketplace

import (
	"context"
	"testing"
	"time"

	"agrinerds-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	farmer1  = uuid.MustParse("00000000-0000-0000-0000-0000000000f1")
	farmer2  = uuid.MustParse("00000000-0000-0000-0000-0000000000f2")
	company1 = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	company2 = uuid.MustParse("00000000-0000-0000-0000-0000000000c2")
)

func setupService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Agreement{}, &domain.AgreementEvent{}))
	return &Service{DB: db}
}

func wheat() CropInput {
	return CropInput{Name: "Wheat", Quantity: 100, Unit: "tonnes", PricePerUnit: 500}
}

func deadline() time.Time {
	return time.Now().Add(24 * time.Hour).Truncate(time.Second)
}

func TestCreateOffer(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "PM Fasal Bima Yojana")
	require.NoError(t, err)

	assert.Equal(t, domain.TypeOffer, offer.ContractType)
	assert.Equal(t, domain.StatusPending, offer.Status)
	require.NotNil(t, offer.SellerID)
	assert.Equal(t, farmer1, *offer.SellerID)
	assert.Equal(t, "Farmer John", offer.SellerName)
	assert.Nil(t, offer.BuyerID)
	assert.Equal(t, "Wheat", offer.Crop.Name)
	assert.Equal(t, int64(100), offer.Crop.Quantity)
	assert.Equal(t, "tonnes", offer.Crop.Unit)
	assert.Equal(t, int64(500), offer.Crop.PricePerUnit)
	assert.False(t, offer.CreatedAt.IsZero())
}

func TestCreateOffer_InvalidCrop(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.CreateOffer(ctx, farmer1, "Farmer John",
		CropInput{Name: "Wheat", Quantity: 0, Unit: "tonnes", PricePerUnit: 500}, deadline(), "ins")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.CreateOffer(ctx, farmer1, "Farmer John",
		CropInput{Name: "Wheat", Quantity: -5, Unit: "tonnes", PricePerUnit: 500}, deadline(), "ins")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.CreateOffer(ctx, farmer1, "Farmer John",
		CropInput{Name: "Wheat", Quantity: 100, Unit: "tonnes", PricePerUnit: 0}, deadline(), "ins")
	assert.ErrorIs(t, err, ErrInvalidPrice)

	// Nothing was written
	var count int64
	s.DB.Model(&domain.Agreement{}).Count(&count)
	assert.Equal(t, int64(0), count)
	s.DB.Model(&domain.AgreementEvent{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestContractIDsAreMonotonic(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	a, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)
	b, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)
	c, err := s.CreateOffer(ctx, farmer2, "Farmer Mike", wheat(), deadline(), "ins")
	require.NoError(t, err)

	assert.Less(t, a.ContractID, b.ContractID)
	assert.Less(t, b.ContractID, c.ContractID)
}

func TestOfferHappyPath(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "PM Fasal Bima Yojana")
	require.NoError(t, err)

	agreed, err := s.AcceptOffer(ctx, company1, offer.ContractID, "Company XYZ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAgreed, agreed.Status)
	require.NotNil(t, agreed.BuyerID)
	assert.Equal(t, company1, *agreed.BuyerID)
	assert.Equal(t, "Company XYZ", agreed.BuyerName)

	delivered, err := s.ConfirmDelivery(ctx, company1, offer.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeliveryConfirmed, delivered.Status)

	completed, err := s.ConfirmPaymentReceived(ctx, farmer1, offer.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
}

func TestAcceptOffer_SecondAcceptRejected(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)

	_, err = s.AcceptOffer(ctx, company1, offer.ContractID, "Company XYZ")
	require.NoError(t, err)

	_, err = s.AcceptOffer(ctx, company2, offer.ContractID, "Company ABC")
	assert.ErrorIs(t, err, ErrIncorrectContractStatus)

	// Buyer binding set by the first accept is untouched.
	got, err := s.GetContract(ctx, offer.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAgreed, got.Status)
	require.NotNil(t, got.BuyerID)
	assert.Equal(t, company1, *got.BuyerID)
	assert.Equal(t, "Company XYZ", got.BuyerName)
}

func TestAcceptOffer_NotFound(t *testing.T) {
	s := setupService(t)
	_, err := s.AcceptOffer(context.Background(), company1, 999, "Company XYZ")
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestAcceptOffer_RejectsRequest(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)

	_, err = s.AcceptOffer(ctx, company2, req.ContractID, "Company DEF")
	assert.ErrorIs(t, err, ErrNotAnOffer)
}

func TestRequestCommitmentPath(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	req, err := s.CreateRequest(ctx, company1, "Company ABC",
		CropInput{Name: "Rice", Quantity: 500, Unit: "tonnes", PricePerUnit: 400}, deadline(), "Private Insurance")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeRequest, req.ContractType)
	require.NotNil(t, req.BuyerID)
	assert.Equal(t, company1, *req.BuyerID)
	assert.Nil(t, req.SellerID)

	com, err := s.SubmitCommitment(ctx, farmer2, req.ContractID, "Farmer Mike", 200, "PM Fasal Bima Yojana")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeCommitment, com.ContractType)
	assert.Equal(t, domain.StatusPending, com.Status)
	require.NotNil(t, com.SellerID)
	assert.Equal(t, farmer2, *com.SellerID)
	assert.Equal(t, "Farmer Mike", com.SellerName)
	assert.Equal(t, int64(200), com.Crop.Quantity)
	assert.Equal(t, "Rice", com.Crop.Name)
	require.NotNil(t, com.ParentRequestID)
	assert.Equal(t, req.ContractID, *com.ParentRequestID)

	// Submitting a commitment does not change the request's status.
	gotReq, err := s.GetContract(ctx, req.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, gotReq.Status)

	agreed, err := s.AcceptCommitment(ctx, company1, com.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAgreed, agreed.Status)
	require.NotNil(t, agreed.BuyerID)
	assert.Equal(t, company1, *agreed.BuyerID)
	assert.Equal(t, "Company ABC", agreed.BuyerName)
}

func TestSubmitCommitment_InvalidQuantity(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)

	_, err = s.SubmitCommitment(ctx, farmer2, req.ContractID, "Farmer Mike", 0, "ins")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSubmitCommitment_NonPendingRequest(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)
	_, err = s.CancelContract(ctx, company1, req.ContractID)
	require.NoError(t, err)

	_, err = s.SubmitCommitment(ctx, farmer2, req.ContractID, "Farmer Mike", 50, "ins")
	assert.ErrorIs(t, err, ErrIncorrectContractStatus)
}

func TestSubmitCommitment_AgainstOffer(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)

	_, err = s.SubmitCommitment(ctx, farmer2, offer.ContractID, "Farmer Mike", 50, "ins")
	assert.ErrorIs(t, err, ErrNotARequest)
}

func TestAcceptCommitment_OnlyRequestBuyer(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)
	com, err := s.SubmitCommitment(ctx, farmer2, req.ContractID, "Farmer Mike", 50, "ins")
	require.NoError(t, err)

	_, err = s.AcceptCommitment(ctx, company2, com.ContractID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Still pending and acceptable by the right buyer.
	got, err := s.GetContract(ctx, com.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.BuyerID)

	_, err = s.AcceptCommitment(ctx, company1, com.ContractID)
	require.NoError(t, err)
}

func TestAcceptCommitment_SecondAcceptRejected(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)
	com, err := s.SubmitCommitment(ctx, farmer2, req.ContractID, "Farmer Mike", 50, "ins")
	require.NoError(t, err)

	_, err = s.AcceptCommitment(ctx, company1, com.ContractID)
	require.NoError(t, err)
	_, err = s.AcceptCommitment(ctx, company1, com.ContractID)
	assert.ErrorIs(t, err, ErrIncorrectContractStatus)
}

func TestConfirmDelivery_RoleAndStatus(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)

	// Not agreed yet
	_, err = s.ConfirmDelivery(ctx, company1, offer.ContractID)
	assert.ErrorIs(t, err, ErrIncorrectContractStatus)

	_, err = s.AcceptOffer(ctx, company1, offer.ContractID, "Company XYZ")
	require.NoError(t, err)

	// Seller cannot confirm delivery
	_, err = s.ConfirmDelivery(ctx, farmer1, offer.ContractID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = s.ConfirmDelivery(ctx, company1, offer.ContractID)
	require.NoError(t, err)

	// Second confirmation is an illegal edge
	_, err = s.ConfirmDelivery(ctx, company1, offer.ContractID)
	assert.ErrorIs(t, err, ErrIncorrectContractStatus)
}

func TestConfirmPayment_RoleAndStatus(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)
	_, err = s.AcceptOffer(ctx, company1, offer.ContractID, "Company XYZ")
	require.NoError(t, err)

	// Delivery not confirmed yet
	_, err = s.ConfirmPaymentReceived(ctx, farmer1, offer.ContractID)
	assert.ErrorIs(t, err, ErrIncorrectContractStatus)

	_, err = s.ConfirmDelivery(ctx, company1, offer.ContractID)
	require.NoError(t, err)

	// Buyer cannot confirm payment
	_, err = s.ConfirmPaymentReceived(ctx, company1, offer.ContractID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	completed, err := s.ConfirmPaymentReceived(ctx, farmer1, offer.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
}

func TestCancelContract(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer Cancel", wheat(), deadline(), "ins")
	require.NoError(t, err)

	// A stranger cannot cancel
	_, err = s.CancelContract(ctx, company2, offer.ContractID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	cancelled, err := s.CancelContract(ctx, farmer1, offer.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// Cancelled contracts stay queryable
	got, err := s.GetContract(ctx, offer.ContractID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestCancelContract_AcceptedOffer(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer Cancel", wheat(), deadline(), "ins")
	require.NoError(t, err)
	_, err = s.AcceptOffer(ctx, company1, offer.ContractID, "Company Cancel")
	require.NoError(t, err)

	_, err = s.CancelContract(ctx, farmer1, offer.ContractID)
	assert.ErrorIs(t, err, ErrOnlyPendingCancellable)
}

func TestGetContract_NotFound(t *testing.T) {
	s := setupService(t)
	_, err := s.GetContract(context.Background(), 42)
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestCommitmentsForRequest_Order(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)

	// Empty slice, not an error, when none exist
	commitments, err := s.CommitmentsForRequest(ctx, req.ContractID)
	require.NoError(t, err)
	assert.Empty(t, commitments)

	c1, err := s.SubmitCommitment(ctx, farmer1, req.ContractID, "Farmer John", 100, "ins")
	require.NoError(t, err)
	c2, err := s.SubmitCommitment(ctx, farmer2, req.ContractID, "Farmer Mike", 200, "ins")
	require.NoError(t, err)

	commitments, err = s.CommitmentsForRequest(ctx, req.ContractID)
	require.NoError(t, err)
	require.Len(t, commitments, 2)
	assert.Equal(t, c1.ContractID, commitments[0].ContractID)
	assert.Equal(t, c2.ContractID, commitments[1].ContractID)
}

func TestContractsForSellerAndBuyer(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	o1, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)
	o2, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)
	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)

	sellers, err := s.ContractsForSeller(ctx, farmer1)
	require.NoError(t, err)
	require.Len(t, sellers, 2)
	assert.Equal(t, o1.ContractID, sellers[0].ContractID)
	assert.Equal(t, o2.ContractID, sellers[1].ContractID)

	buyers, err := s.ContractsForBuyer(ctx, company1)
	require.NoError(t, err)
	require.Len(t, buyers, 1)
	assert.Equal(t, req.ContractID, buyers[0].ContractID)

	// Unknown identity: empty, not an error
	none, err := s.ContractsForSeller(ctx, company2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAcceptOffer_AppearsInBuyerIndex(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)
	_, err = s.AcceptOffer(ctx, company1, offer.ContractID, "Company XYZ")
	require.NoError(t, err)

	buyers, err := s.ContractsForBuyer(ctx, company1)
	require.NoError(t, err)
	require.Len(t, buyers, 1)
	assert.Equal(t, offer.ContractID, buyers[0].ContractID)
}

func TestEventsRecordedPerTransition(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)
	_, err = s.AcceptOffer(ctx, company1, offer.ContractID, "Company XYZ")
	require.NoError(t, err)
	_, err = s.ConfirmDelivery(ctx, company1, offer.ContractID)
	require.NoError(t, err)
	_, err = s.ConfirmPaymentReceived(ctx, farmer1, offer.ContractID)
	require.NoError(t, err)

	events, err := s.EventsForContract(ctx, offer.ContractID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, EventOfferCreated, events[0].EventType)
	assert.Equal(t, EventOfferAccepted, events[1].EventType)
	assert.Equal(t, EventDeliveryConfirmed, events[2].EventType)
	assert.Equal(t, EventPaymentConfirmed, events[3].EventType)
}

func TestFailedTransitionWritesNoEvent(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)

	_, err = s.ConfirmDelivery(ctx, company1, offer.ContractID)
	require.Error(t, err)

	events, err := s.EventsForContract(ctx, offer.ContractID)
	require.NoError(t, err)
	assert.Len(t, events, 1) // creation event only
}

func TestOpenOffersAndRequests(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	offer, err := s.CreateOffer(ctx, farmer1, "Farmer John", wheat(), deadline(), "ins")
	require.NoError(t, err)
	req, err := s.CreateRequest(ctx, company1, "Company ABC", wheat(), deadline(), "ins")
	require.NoError(t, err)

	offers, err := s.OpenOffers(ctx)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, offer.ContractID, offers[0].ContractID)

	requests, err := s.OpenRequests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, req.ContractID, requests[0].ContractID)

	// Accepted offers leave the browse surface
	_, err = s.AcceptOffer(ctx, company1, offer.ContractID, "Company XYZ")
	require.NoError(t, err)
	offers, err = s.OpenOffers(ctx)
	require.NoError(t, err)
	assert.Empty(t, offers)
}
