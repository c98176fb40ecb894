package campaign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geocast/geocast/internal/models"
	"github.com/geocast/geocast/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func newService() (*Service, *storage.InMemoryCampaignStore, *storage.InMemoryTargetingLocationStore) {
	campaigns := storage.NewInMemoryCampaignStore()
	locations := storage.NewInMemoryTargetingLocationStore()
	locations.Add(&models.TargetingLocation{ID: "loc-1", Name: "City Hall", RadiusM: 1000})
	return NewService(campaigns, locations, zap.NewNop()), campaigns, locations
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to draft", func(t *testing.T) {
		svc, _, _ := newService()
		c, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi"})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, models.CampaignStatusDraft, c.Status)
		assert.False(t, c.CreatedAt.IsZero())
	})

	t.Run("rejects unknown targeting location", func(t *testing.T) {
		svc, _, _ := newService()
		_, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi", TargetingLocationID: ptr("nope")})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("rejects missing message", func(t *testing.T) {
		svc, _, _ := newService()
		_, err := svc.Create(ctx, CreateRequest{Name: "Promo"})
		assert.Error(t, err)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, svc *Service, status models.CampaignStatus, campaigns *storage.InMemoryCampaignStore) string {
		t.Helper()
		c, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi", TargetingLocationID: ptr("loc-1")})
		require.NoError(t, err)
		if status != models.CampaignStatusDraft {
			c.Status = status
			require.NoError(t, campaigns.Update(ctx, c))
		}
		return c.ID
	}

	t.Run("edits content while editable", func(t *testing.T) {
		svc, campaigns, _ := newService()
		id := seed(t, svc, models.CampaignStatusDraft, campaigns)

		c, err := svc.Update(ctx, id, models.CampaignPatch{Name: ptr("Renamed")})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", c.Name)
	})

	t.Run("rejects content edit after completion", func(t *testing.T) {
		svc, campaigns, _ := newService()
		id := seed(t, svc, models.CampaignStatusCompleted, campaigns)

		_, err := svc.Update(ctx, id, models.CampaignPatch{Name: ptr("Renamed")})
		var ise *models.InvalidStateError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, "edit", ise.Op)
	})

	t.Run("allows valid status transition", func(t *testing.T) {
		svc, campaigns, _ := newService()
		id := seed(t, svc, models.CampaignStatusDraft, campaigns)

		st := models.CampaignStatusCancelled
		c, err := svc.Update(ctx, id, models.CampaignPatch{Status: &st})
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusCancelled, c.Status)
	})

	t.Run("rejects invalid status transition", func(t *testing.T) {
		svc, campaigns, _ := newService()
		id := seed(t, svc, models.CampaignStatusCompleted, campaigns)

		st := models.CampaignStatusDraft
		_, err := svc.Update(ctx, id, models.CampaignPatch{Status: &st})
		var ise *models.InvalidStateError
		assert.ErrorAs(t, err, &ise)
	})

	t.Run("clears targeting location without touching deliveries", func(t *testing.T) {
		svc, campaigns, _ := newService()
		id := seed(t, svc, models.CampaignStatusDraft, campaigns)

		c, err := svc.Update(ctx, id, models.CampaignPatch{TargetingLocationID: models.ClearString()})
		require.NoError(t, err)
		assert.Nil(t, c.TargetingLocationID)
	})

	t.Run("rejects assigning unknown location", func(t *testing.T) {
		svc, campaigns, _ := newService()
		id := seed(t, svc, models.CampaignStatusDraft, campaigns)

		_, err := svc.Update(ctx, id, models.CampaignPatch{TargetingLocationID: models.SetString("nope")})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	setStatus := func(t *testing.T, campaigns *storage.InMemoryCampaignStore, id string, status models.CampaignStatus) {
		t.Helper()
		c, err := campaigns.Get(ctx, id)
		require.NoError(t, err)
		c.Status = status
		require.NoError(t, campaigns.Update(ctx, c))
	}

	t.Run("deletes draft", func(t *testing.T) {
		svc, campaigns, _ := newService()
		c, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi"})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, c.ID))
		_, err = campaigns.Get(ctx, c.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("refuses sending and cancelled", func(t *testing.T) {
		for _, status := range []models.CampaignStatus{models.CampaignStatusSending, models.CampaignStatusCancelled} {
			svc, campaigns, _ := newService()
			c, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi"})
			require.NoError(t, err)
			setStatus(t, campaigns, c.ID, status)

			err = svc.Delete(ctx, c.ID)
			var ise *models.InvalidStateError
			require.ErrorAs(t, err, &ise, "status %s", status)
			assert.Equal(t, "delete", ise.Op)
		}
	})

	t.Run("deletes completed", func(t *testing.T) {
		svc, campaigns, _ := newService()
		c, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi"})
		require.NoError(t, err)
		setStatus(t, campaigns, c.ID, models.CampaignStatusCompleted)

		assert.NoError(t, svc.Delete(ctx, c.ID))
	})
}

func TestCompleteSend(t *testing.T) {
	ctx := context.Background()

	t.Run("advances draft to completed", func(t *testing.T) {
		svc, _, _ := newService()
		c, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi", TargetingLocationID: ptr("loc-1")})
		require.NoError(t, err)

		done, err := svc.CompleteSend(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusCompleted, done.Status)
	})

	t.Run("rejects completed campaign", func(t *testing.T) {
		svc, _, _ := newService()
		c, err := svc.Create(ctx, CreateRequest{Name: "Promo", Message: "hi"})
		require.NoError(t, err)

		_, err = svc.CompleteSend(ctx, c.ID)
		require.NoError(t, err)

		_, err = svc.CompleteSend(ctx, c.ID)
		var ise *models.InvalidStateError
		assert.ErrorAs(t, err, &ise)
	})
}
