package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTable_SerializesSameWallet(t *testing.T) {
	locks := newLockTable()
	id := uuid.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.acquire(context.Background(), id)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.size())
}

func TestLockTable_DistinctWalletsDoNotBlock(t *testing.T) {
	locks := newLockTable()

	unlockA, err := locks.acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locks.acquire(ctx, uuid.New())
	require.NoError(t, err)
	unlockB()

	assert.Equal(t, 1, locks.size())
}

func TestLockTable_AcquireHonoursContext(t *testing.T) {
	locks := newLockTable()
	id := uuid.New()

	unlock, err := locks.acquire(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, id)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Zero(t, locks.size(), "abandoned waiter must not leak an entry")
}

func TestLockTable_UnlockIsIdempotent(t *testing.T) {
	locks := newLockTable()
	id := uuid.New()

	unlock, err := locks.acquire(context.Background(), id)
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = locks.acquire(context.Background(), id)
	require.NoError(t, err)
	unlock()
	assert.Zero(t, locks.size())
}
