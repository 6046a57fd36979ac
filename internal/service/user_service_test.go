package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/artrelay/internal/models"
)

func TestUserServiceGet(t *testing.T) {
	svc := NewUserService(newFakeUsers(&models.User{ID: "u1", Credits: 2}), &fakeImages{}, &fakeTransactions{})

	user, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, user.Credits)

	_, err = svc.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceCreateIgnoresCredits(t *testing.T) {
	users := newFakeUsers()
	svc := NewUserService(users, &fakeImages{}, &fakeTransactions{})

	user, err := svc.CreateOrUpdate(context.Background(), "u1", map[string]any{
		"id":      "u1",
		"credits": 1000,
		"email":   "a@example.com",
		"name":    "Ann",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, user.Credits)
	assert.Equal(t, map[string]any{"email": "a@example.com", "name": "Ann"}, user.Attributes)

	_, err = svc.CreateOrUpdate(context.Background(), " ", nil)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestUserServiceListsNewestFirst(t *testing.T) {
	txns := &fakeTransactions{}
	ctx := context.Background()
	require.NoError(t, txns.Append(ctx, &models.Transaction{UserID: "u1", Amount: 10, Type: models.TransactionPurchase}))
	require.NoError(t, txns.Append(ctx, &models.Transaction{UserID: "u1", Amount: -1, Type: models.TransactionImageTransformation}))
	require.NoError(t, txns.Append(ctx, &models.Transaction{UserID: "u2", Amount: 5, Type: models.TransactionPurchase}))
	svc := NewUserService(newFakeUsers(), &fakeImages{}, txns)

	items, err := svc.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, -1, items[0].Amount)

	images, err := svc.ListImages(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, images)
	assert.Empty(t, images)
}
