package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/digkill/artrelay/internal/models"
)

// UserStore is satisfied by *repository.UserRepository.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, id string, attributes map[string]any) (*models.User, error)
	Ensure(ctx context.Context, id string) (*models.User, bool, error)
	AdjustCredits(ctx context.Context, id string, delta int) (int, error)
}

type ImageStore interface {
	Append(ctx context.Context, image *models.ImageRecord) error
	ListByUser(ctx context.Context, userID string) ([]models.ImageRecord, error)
}

type TransactionStore interface {
	Append(ctx context.Context, txn *models.Transaction) error
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
}

// reservedAttributes are owned by the ledger and never taken from a profile
// payload.
var reservedAttributes = []string{"id", "credits", "createdAt", "updatedAt"}

type UserService struct {
	users        UserStore
	images       ImageStore
	transactions TransactionStore
}

func NewUserService(users UserStore, images ImageStore, transactions TransactionStore) *UserService {
	return &UserService{users: users, images: images, transactions: transactions}
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateOrUpdate stores the profile fields for id. A new user starts with a
// zero balance; credits in the payload are ignored.
func (s *UserService) CreateOrUpdate(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	attrs := make(map[string]any, len(fields))
	for k, v := range fields {
		attrs[k] = v
	}
	for _, k := range reservedAttributes {
		delete(attrs, k)
	}

	user, err := s.users.Upsert(ctx, id, attrs)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// ListTransactions returns the ledger entries for userID, newest first. An
// unknown user has an empty ledger.
func (s *UserService) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	items, err := s.transactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}

func (s *UserService) ListImages(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	items, err := s.images.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return items, nil
}
