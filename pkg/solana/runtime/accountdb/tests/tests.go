package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb"
)

func RunTests(t *testing.T, s accountdb.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s accountdb.Store){
		testRoundTrip,
		testBatchUpdatesAndDeletes,
		testInvalidRecordSavesNothing,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s accountdb.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now()

		_, err := s.Get(ctx, "account")
		assert.Equal(t, accountdb.ErrAccountNotFound, err)

		expected := &accountdb.Record{
			Address:  "account",
			Lamports: 2039280,
			Owner:    "owner",
			Data:     []byte{1, 2, 3},
		}
		cloned := expected.Clone()
		require.NoError(t, s.Save(ctx, []*accountdb.Record{expected}, nil))
		assert.True(t, expected.Id > 0)
		assert.False(t, expected.LastUpdatedAt.Before(start.Truncate(time.Second)))

		actual, err := s.Get(ctx, "account")
		require.NoError(t, err)
		assert.Equal(t, expected.Id, actual.Id)
		assertEquivalentRecords(t, &cloned, actual)

		// Returned records are copies
		actual.Data[0] = 0xff
		actual, err = s.Get(ctx, "account")
		require.NoError(t, err)
		assert.EqualValues(t, 1, actual.Data[0])

		update := &accountdb.Record{
			Address:    "account",
			Lamports:   1,
			Owner:      "other",
			Data:       nil,
			Executable: true,
		}
		cloned = update.Clone()
		require.NoError(t, s.Save(ctx, []*accountdb.Record{update}, nil))
		assert.Equal(t, expected.Id, update.Id)

		actual, err = s.Get(ctx, "account")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)
	})
}

func testBatchUpdatesAndDeletes(t *testing.T, s accountdb.Store) {
	t.Run("testBatchUpdatesAndDeletes", func(t *testing.T) {
		ctx := context.Background()

		var records []*accountdb.Record
		for _, address := range []string{"a", "b", "c"} {
			records = append(records, &accountdb.Record{
				Address:  address,
				Lamports: 890880,
				Owner:    "owner",
			})
		}
		require.NoError(t, s.Save(ctx, records, nil))

		records[0].Lamports = 10
		require.NoError(t, s.Save(ctx, []*accountdb.Record{records[0]}, []string{"b", "c", "never-saved"}))

		actual, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.EqualValues(t, 10, actual.Lamports)

		for _, address := range []string{"b", "c"} {
			_, err = s.Get(ctx, address)
			assert.Equal(t, accountdb.ErrAccountNotFound, err)
		}
	})
}

func testInvalidRecordSavesNothing(t *testing.T, s accountdb.Store) {
	t.Run("testInvalidRecordSavesNothing", func(t *testing.T) {
		ctx := context.Background()

		valid := &accountdb.Record{
			Address:  "valid",
			Lamports: 1,
			Owner:    "owner",
		}
		invalid := &accountdb.Record{
			Address: "invalid",
			Owner:   "owner",
		}
		assert.Error(t, s.Save(ctx, []*accountdb.Record{valid, invalid}, nil))

		_, err := s.Get(ctx, "valid")
		assert.Equal(t, accountdb.ErrAccountNotFound, err)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *accountdb.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Lamports, obj2.Lamports)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, len(obj1.Data), len(obj2.Data))
	if len(obj1.Data) > 0 {
		assert.Equal(t, obj1.Data, obj2.Data)
	}
	assert.Equal(t, obj1.Executable, obj2.Executable)
}
