package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/digkill/artrelay/internal/models"
	"github.com/digkill/artrelay/internal/openai"
	"github.com/digkill/artrelay/internal/razorpay"
	"github.com/digkill/artrelay/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUsers struct {
	mu        sync.Mutex
	users     map[string]*models.User
	adjustErr error
	upserts   []map[string]any
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Upsert(_ context.Context, id string, attrs map[string]any) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, attrs)
	u, ok := f.users[id]
	if !ok {
		u = &models.User{ID: id, CreatedAt: time.Now().UTC()}
		f.users[id] = u
	}
	if attrs != nil {
		u.Attributes = attrs
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Ensure(ctx context.Context, id string) (*models.User, bool, error) {
	if u, _ := f.Get(ctx, id); u != nil {
		return u, false, nil
	}
	u, err := f.Upsert(ctx, id, nil)
	return u, true, err
}

func (f *fakeUsers) AdjustCredits(_ context.Context, id string, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adjustErr != nil {
		return 0, f.adjustErr
	}
	u, ok := f.users[id]
	if !ok {
		return 0, errors.New("record not found")
	}
	u.Credits += delta
	return u.Credits, nil
}

func (f *fakeUsers) balance(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u.Credits
	}
	return -1
}

type fakeImages struct {
	mu      sync.Mutex
	records []models.ImageRecord
}

func (f *fakeImages) Append(_ context.Context, image *models.ImageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	image.ID = fmt.Sprintf("img-%d", len(f.records)+1)
	image.CreatedAt = time.Now().UTC()
	f.records = append(f.records, *image)
	return nil
}

func (f *fakeImages) ListByUser(_ context.Context, userID string) ([]models.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ImageRecord{}
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

type fakeTransactions struct {
	mu      sync.Mutex
	records []models.Transaction
	err     error
}

func (f *fakeTransactions) Append(_ context.Context, txn *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	txn.ID = fmt.Sprintf("txn-%d", len(f.records)+1)
	txn.CreatedAt = time.Now().UTC()
	f.records = append(f.records, *txn)
	return nil
}

func (f *fakeTransactions) ListByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Transaction{}
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

type fakeUploads struct {
	mu      sync.Mutex
	puts    int
	deleted []string
}

func (f *fakeUploads) Put(_ context.Context, data []byte, _ string) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) == 0 {
		return storage.Object{}, storage.ErrEmptyObject
	}
	f.puts++
	key := fmt.Sprintf("upload-%d.png", f.puts)
	return storage.Object{Key: key, URL: "http://localhost:5000/uploads/" + key}, nil
}

func (f *fakeUploads) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeVision struct {
	reply string
	err   error
	calls int
}

func (f *fakeVision) DescribeImage(_ context.Context, _ []byte, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeGenerator struct {
	image *openai.Image
	err   error
	calls int
	last  openai.GenerateOptions
}

func (f *fakeGenerator) GenerateImage(_ context.Context, opts openai.GenerateOptions) (*openai.Image, error) {
	f.calls++
	f.last = opts
	return f.image, f.err
}

type fakeGateway struct {
	valid     bool
	lastOrder razorpay.OrderRequest
}

func (f *fakeGateway) CreateOrder(_ context.Context, order razorpay.OrderRequest) (*razorpay.Order, error) {
	f.lastOrder = order
	return &razorpay.Order{ID: "order_123", Amount: order.Amount, Currency: order.Currency, Status: "created"}, nil
}

func (f *fakeGateway) VerifySignature(_, _, _ string) bool {
	return f.valid
}

func (f *fakeGateway) KeyID() string {
	return "rzp_test_key"
}
