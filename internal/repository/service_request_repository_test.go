package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRequestRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewServiceRequestRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.ServiceRequest{
		Description:   "please deliver the card by hand",
		ContactNumber: "+1234567890",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, model.ServiceRequestStatusNew, created.Status)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "please deliver the card by hand", got.Description)
	assert.Equal(t, "+1234567890", got.ContactNumber)
}

func TestServiceRequestRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewServiceRequestRepository(db.DB)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrServiceRequestNotFound)
}

func TestServiceRequestRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewServiceRequestRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.ServiceRequest{
		Description:   "wrap it in red paper",
		ContactNumber: "+1234567890",
	})
	require.NoError(t, err)

	status := model.ServiceRequestStatusInProgress
	notes := "called the requester, gift wrap confirmed"
	require.NoError(t, repo.Update(ctx, created.ID, model.ServiceRequestUpdateRequest{
		Status:     &status,
		AdminNotes: &notes,
	}))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ServiceRequestStatusInProgress, got.Status)
	assert.Equal(t, notes, got.AdminNotes)

	t.Run("notes only leaves status untouched", func(t *testing.T) {
		update := "second call done"
		require.NoError(t, repo.Update(ctx, created.ID, model.ServiceRequestUpdateRequest{
			AdminNotes: &update,
		}))

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ServiceRequestStatusInProgress, got.Status)
		assert.Equal(t, update, got.AdminNotes)
	})

	t.Run("unknown id", func(t *testing.T) {
		status := model.ServiceRequestStatusCompleted
		err := repo.Update(ctx, uuid.New(), model.ServiceRequestUpdateRequest{Status: &status})
		assert.ErrorIs(t, err, ErrServiceRequestNotFound)
	})
}

func TestServiceRequestRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewServiceRequestRepository(db.DB)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &model.ServiceRequest{
			Description:   "request",
			ContactNumber: "+1234567890",
		})
		require.NoError(t, err)
	}

	got, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, got, 2)
}
