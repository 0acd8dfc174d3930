package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

type mockKeyStore struct {
	mock.Mock
}

func (m *mockKeyStore) ExistingMentionKeys(ctx context.Context, keys []models.MentionKey) (map[models.MentionKey]bool, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.MentionKey]bool), args.Error(1)
}

func candidate(messageID, ticker string) models.StockMention {
	return models.StockMention{MessageID: messageID, Ticker: ticker}
}

func TestFilterEmptyBatch(t *testing.T) {
	store := new(mockKeyStore)
	d := New(store)

	fresh, err := d.Filter(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, fresh)
	store.AssertNotCalled(t, "ExistingMentionKeys")
}

func TestFilterDropsPersistedKeys(t *testing.T) {
	store := new(mockKeyStore)
	store.On("ExistingMentionKeys", mock.Anything, mock.Anything).Return(map[models.MentionKey]bool{
		{MessageID: "m1", Ticker: "AAPL"}: true,
	}, nil)
	d := New(store)

	fresh, err := d.Filter(context.Background(), []models.StockMention{
		candidate("m1", "AAPL"),
		candidate("m1", "TSLA"),
		candidate("m2", "AAPL"),
	})

	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "TSLA", fresh[0].Ticker)
	assert.Equal(t, "m2", fresh[1].MessageID)
	store.AssertExpectations(t)
}

func TestFilterDropsWithinBatchDuplicates(t *testing.T) {
	store := new(mockKeyStore)
	store.On("ExistingMentionKeys", mock.Anything, mock.Anything).Return(map[models.MentionKey]bool{}, nil)
	d := New(store)

	first := candidate("m1", "AAPL")
	first.Score = 10
	repeat := candidate("m1", "AAPL")
	repeat.Score = 99

	fresh, err := d.Filter(context.Background(), []models.StockMention{first, repeat})

	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 10, fresh[0].Score, "the first occurrence wins")
}

func TestFilterPreservesOrder(t *testing.T) {
	store := new(mockKeyStore)
	store.On("ExistingMentionKeys", mock.Anything, mock.Anything).Return(map[models.MentionKey]bool{
		{MessageID: "m2", Ticker: "GME"}: true,
	}, nil)
	d := New(store)

	fresh, err := d.Filter(context.Background(), []models.StockMention{
		candidate("m1", "TSLA"),
		candidate("m2", "GME"),
		candidate("m3", "AAPL"),
		candidate("m4", "NVDA"),
	})

	require.NoError(t, err)
	require.Len(t, fresh, 3)
	assert.Equal(t, "m1", fresh[0].MessageID)
	assert.Equal(t, "m3", fresh[1].MessageID)
	assert.Equal(t, "m4", fresh[2].MessageID)
}

func TestFilterQueriesAllCandidateKeys(t *testing.T) {
	store := new(mockKeyStore)
	store.On("ExistingMentionKeys", mock.Anything, []models.MentionKey{
		{MessageID: "m1", Ticker: "AAPL"},
		{MessageID: "m1", Ticker: "TSLA"},
	}).Return(map[models.MentionKey]bool{}, nil)
	d := New(store)

	_, err := d.Filter(context.Background(), []models.StockMention{
		candidate("m1", "AAPL"),
		candidate("m1", "TSLA"),
	})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestFilterStoreError(t *testing.T) {
	store := new(mockKeyStore)
	store.On("ExistingMentionKeys", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	d := New(store)

	fresh, err := d.Filter(context.Background(), []models.StockMention{candidate("m1", "AAPL")})

	assert.Error(t, err)
	assert.Nil(t, fresh)
}
