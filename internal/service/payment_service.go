package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/artrelay/internal/metrics"
	"github.com/digkill/artrelay/internal/models"
	"github.com/digkill/artrelay/internal/razorpay"
)

// PaymentGateway is satisfied by *razorpay.Client.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, order razorpay.OrderRequest) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

type PaymentService struct {
	log          *slog.Logger
	gateway      PaymentGateway
	users        UserStore
	transactions TransactionStore
	currency     string
}

func NewPaymentService(log *slog.Logger, gateway PaymentGateway, users UserStore, transactions TransactionStore, currency string) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		log:          log,
		gateway:      gateway,
		users:        users,
		transactions: transactions,
		currency:     currency,
	}
}

type OrderResult struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
}

// CreateOrder opens a provider order for price major units. Credits and the
// user are only carried as notes; nothing is stored until verification.
func (s *PaymentService) CreateOrder(ctx context.Context, price float64, userID string, credits int) (*OrderResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidField)
	}
	if credits <= 0 {
		return nil, fmt.Errorf("%w: credits must be positive", ErrInvalidField)
	}

	amount := int64(math.Round(price * 100))
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20],
		Notes: map[string]string{
			"userId":  userID,
			"credits": strconv.Itoa(credits),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("payment order created", "order_id", order.ID, "user_id", userID, "amount", amount, "credits", credits)
	return &OrderResult{
		ID:       order.ID,
		Amount:   amount,
		Currency: s.currency,
		Key:      s.gateway.KeyID(),
	}, nil
}

type VerifyInput struct {
	OrderID    string
	PaymentID  string
	Signature  string
	UserID     string
	Credits    int
	AmountPaid *int
}

// VerifyPayment checks the checkout signature and, only when it matches,
// credits the user (creating them if needed) and records a purchase. It
// returns the new balance.
func (s *PaymentService) VerifyPayment(ctx context.Context, in VerifyInput) (int, error) {
	switch {
	case in.OrderID == "":
		return 0, fmt.Errorf("%w: razorpay_order_id", ErrMissingField)
	case in.PaymentID == "":
		return 0, fmt.Errorf("%w: razorpay_payment_id", ErrMissingField)
	case in.Signature == "":
		return 0, fmt.Errorf("%w: razorpay_signature", ErrMissingField)
	case strings.TrimSpace(in.UserID) == "":
		return 0, fmt.Errorf("%w: userId", ErrMissingField)
	case in.Credits <= 0:
		return 0, fmt.Errorf("%w: credits must be positive", ErrInvalidField)
	}

	if !s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		metrics.PaymentVerifications.WithLabelValues("signature_mismatch").Inc()
		s.log.Warn("payment signature mismatch", "order_id", in.OrderID, "payment_id", in.PaymentID, "user_id", in.UserID)
		return 0, ErrSignatureMismatch
	}

	_, created, err := s.users.Ensure(ctx, in.UserID)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("ensure user: %w", err)
	}
	if created {
		s.log.Info("user created on first purchase", "user_id", in.UserID)
	}

	balance, err := s.users.AdjustCredits(ctx, in.UserID, in.Credits)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("credit user: %w", err)
	}

	orderID, paymentID := in.OrderID, in.PaymentID
	txn := &models.Transaction{
		UserID:     in.UserID,
		Amount:     in.Credits,
		Type:       models.TransactionPurchase,
		OrderID:    &orderID,
		PaymentID:  &paymentID,
		AmountPaid: in.AmountPaid,
	}
	if err := s.transactions.Append(ctx, txn); err != nil {
		metrics.PaymentVerifications.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("record purchase: %w", err)
	}

	metrics.PaymentVerifications.WithLabelValues("ok").Inc()
	s.log.Info("payment verified", "order_id", in.OrderID, "payment_id", in.PaymentID, "user_id", in.UserID, "credits", in.Credits, "balance", balance)
	return balance, nil
}
