package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeGreeting(deliverAt time.Time) *model.Greeting {
	return &model.Greeting{
		SenderName:     "Alice",
		RecipientName:  "Bob",
		Relationship:   model.RelationshipFriend,
		ContentMode:    model.ContentModeGenerated,
		Description:    "his sense of humor",
		Channel:        model.ChannelEmail,
		RecipientEmail: "bob@x.com",
		DeliverAt:      deliverAt,
	}
}

func TestGreetingRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, makeGreeting(time.Now()))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, model.GreetingStatusPending, created.Status)
	assert.Nil(t, created.Diagnostic)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.SenderName)
	assert.Equal(t, "bob@x.com", got.RecipientEmail)
}

func TestGreetingRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGreetingRepository_FindDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()
	now := time.Now()

	due, err := repo.Create(ctx, makeGreeting(now.Add(-time.Hour)))
	require.NoError(t, err)

	notDue, err := repo.Create(ctx, makeGreeting(now.Add(time.Hour)))
	require.NoError(t, err)

	alreadySent, err := repo.Create(ctx, makeGreeting(now.Add(-time.Hour)))
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessing(ctx, alreadySent.ID))
	require.NoError(t, repo.MarkSent(ctx, alreadySent.ID))

	found, err := repo.FindDue(ctx, now, 100)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(found))
	for _, g := range found {
		ids = append(ids, g.ID)
	}
	assert.Contains(t, ids, due.ID)
	assert.NotContains(t, ids, notDue.ID)
	assert.NotContains(t, ids, alreadySent.ID)
}

func TestGreetingRepository_FindDue_Limit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, makeGreeting(now.Add(-time.Duration(i+1)*time.Minute)))
		require.NoError(t, err)
	}

	found, err := repo.FindDue(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, found, 3)

	// Oldest first
	for i := 1; i < len(found); i++ {
		assert.True(t, !found[i].DeliverAt.Before(found[i-1].DeliverAt))
	}
}

func TestGreetingRepository_MarkProcessing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()

	g, err := repo.Create(ctx, makeGreeting(time.Now()))
	require.NoError(t, err)

	t.Run("claims a pending greeting", func(t *testing.T) {
		err := repo.MarkProcessing(ctx, g.ID)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, model.GreetingStatusProcessing, got.Status)
	})

	t.Run("second claim fails", func(t *testing.T) {
		err := repo.MarkProcessing(ctx, g.ID)
		assert.ErrorIs(t, err, ErrNotClaimable)
	})

	t.Run("unknown id is not claimable", func(t *testing.T) {
		err := repo.MarkProcessing(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotClaimable)
	})
}

func TestGreetingRepository_MarkSent_ClearsDiagnostic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()

	g, err := repo.Create(ctx, makeGreeting(time.Now()))
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessing(ctx, g.ID))

	// Leftover diagnostic from an earlier attempt.
	require.NoError(t, db.rawDB.Model(&GreetingEntity{}).
		Where("id = ?", g.ID).
		Update("diagnostic", `{"error":"SMTP timeout","stage":"delivery"}`).Error)

	require.NoError(t, repo.MarkSent(ctx, g.ID))

	got, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GreetingStatusSent, got.Status)
	assert.Nil(t, got.Diagnostic)
}

func TestGreetingRepository_TerminalStatesAreImmutable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()

	d := &model.Diagnostic{
		Error: "SMTP timeout",
		Stage: model.StageDelivery,
	}

	t.Run("sent row survives a late failure", func(t *testing.T) {
		g, err := repo.Create(ctx, makeGreeting(time.Now()))
		require.NoError(t, err)
		require.NoError(t, repo.MarkProcessing(ctx, g.ID))
		require.NoError(t, repo.MarkSent(ctx, g.ID))

		assert.ErrorIs(t, repo.MarkFailed(ctx, g.ID, d), ErrNotFound)

		got, err := repo.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, model.GreetingStatusSent, got.Status)
		assert.Nil(t, got.Diagnostic)
	})

	t.Run("failed row cannot become sent", func(t *testing.T) {
		g, err := repo.Create(ctx, makeGreeting(time.Now()))
		require.NoError(t, err)
		require.NoError(t, repo.MarkProcessing(ctx, g.ID))
		require.NoError(t, repo.MarkFailed(ctx, g.ID, d))

		assert.ErrorIs(t, repo.MarkSent(ctx, g.ID), ErrNotFound)

		got, err := repo.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, model.GreetingStatusFailed, got.Status)
	})

	t.Run("unclaimed row cannot be sent", func(t *testing.T) {
		g, err := repo.Create(ctx, makeGreeting(time.Now()))
		require.NoError(t, err)

		assert.ErrorIs(t, repo.MarkSent(ctx, g.ID), ErrNotFound)

		got, err := repo.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, model.GreetingStatusPending, got.Status)
	})

	t.Run("pending row can still fail before the claim", func(t *testing.T) {
		g, err := repo.Create(ctx, makeGreeting(time.Now()))
		require.NoError(t, err)

		require.NoError(t, repo.MarkFailed(ctx, g.ID, d))

		got, err := repo.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, model.GreetingStatusFailed, got.Status)
	})
}

func TestGreetingRepository_MarkFailed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()

	g, err := repo.Create(ctx, makeGreeting(time.Now()))
	require.NoError(t, err)

	d := &model.Diagnostic{
		Error:     "SMTP timeout",
		Stage:     model.StageDelivery,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	require.NoError(t, repo.MarkFailed(ctx, g.ID, d))

	got, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GreetingStatusFailed, got.Status)
	require.NotNil(t, got.Diagnostic)
	assert.Equal(t, "SMTP timeout", got.Diagnostic.Error)
	assert.Equal(t, model.StageDelivery, got.Diagnostic.Stage)
	assert.Equal(t, d.Timestamp, got.Diagnostic.Timestamp)

	t.Run("unknown id", func(t *testing.T) {
		err := repo.MarkFailed(ctx, uuid.New(), d)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGreetingRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGreetingRepository(db.DB)
	ctx := context.Background()

	g1, err := repo.Create(ctx, makeGreeting(time.Now()))
	require.NoError(t, err)
	_, err = repo.Create(ctx, makeGreeting(time.Now()))
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessing(ctx, g1.ID))

	t.Run("no filter returns all", func(t *testing.T) {
		got, total, err := repo.List(ctx, model.GreetingFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, got, 2)
	})

	t.Run("status filter", func(t *testing.T) {
		got, total, err := repo.List(ctx, model.GreetingFilter{
			Statuses: []model.GreetingStatus{model.GreetingStatusProcessing},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, got, 1)
		assert.Equal(t, g1.ID, got[0].ID)
	})

	t.Run("relationship filter", func(t *testing.T) {
		boss := makeGreeting(time.Now())
		boss.Relationship = model.RelationshipBoss
		created, err := repo.Create(ctx, boss)
		require.NoError(t, err)

		rel := model.RelationshipBoss
		got, total, err := repo.List(ctx, model.GreetingFilter{Relationship: &rel})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, got, 1)
		assert.Equal(t, created.ID, got[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		got, total, err := repo.List(ctx, model.GreetingFilter{Limit: 1})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(2))
		assert.Len(t, got, 1)
	})
}
