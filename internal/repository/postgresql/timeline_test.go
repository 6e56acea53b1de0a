package postgresql_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/globeship/shipment-service/internal/db/mocks"
	"github.com/globeship/shipment-service/internal/repository"
	"github.com/globeship/shipment-service/internal/repository/postgresql"
)

func TestTimelineRepo_CreateTx(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewTimelineRepo(mockDB)

		entry := &repository.TimelineEntry{
			ID:         uuid.New(),
			ShipmentID: "SHP-1",
			Status:     "AT_WAREHOUSE",
			Source:     "EXTERNAL",
			Version:    2,
			Metadata:   json.RawMessage(`{"carrier_status":"RECEIVED_AT_WAREHOUSE"}`),
			CreatedAt:  now,
		}

		mockTx.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq(entry.ID),
			gomock.Eq(entry.ShipmentID),
			gomock.Eq(entry.Status),
			gomock.Eq(entry.Source),
			gomock.Eq(entry.Version),
			gomock.Eq(entry.Metadata),
			gomock.Eq(entry.CreatedAt),
		).Return(nil, nil)

		err := repo.CreateTx(ctx, mockTx, entry)
		assert.NoError(t, err)
	})

	t.Run("assigns an id when missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewTimelineRepo(mockDB)

		entry := &repository.TimelineEntry{
			ShipmentID: "SHP-1",
			Status:     "BOOKED",
			Source:     "INTERNAL",
			Version:    1,
			CreatedAt:  now,
		}

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil)

		require.NoError(t, repo.CreateTx(ctx, mockTx, entry))
		assert.NotEqual(t, uuid.Nil, entry.ID)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewTimelineRepo(mockDB)

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("database error"))

		err := repo.CreateTx(ctx, mockTx, &repository.TimelineEntry{ID: uuid.New(), ShipmentID: "SHP-1"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "SHP-1")
	})
}

func TestTimelineRepo_GetByShipmentID(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewTimelineRepo(mockDB)

	expected := []*repository.TimelineEntry{
		{ID: uuid.New(), ShipmentID: "SHP-1", Status: "BOOKED", Source: "INTERNAL", Version: 1},
		{ID: uuid.New(), ShipmentID: "SHP-1", Status: "AT_WAREHOUSE", Source: "EXTERNAL", Version: 2},
	}

	mockDB.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("SHP-1")).
		DoAndReturn(func(_ context.Context, dest *[]*repository.TimelineEntry, _ string, _ string) error {
			*dest = expected
			return nil
		})

	entries, err := repo.GetByShipmentID(ctx, "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, expected, entries)
}
