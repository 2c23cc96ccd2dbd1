package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/internal/checkin/models"
)

func TestInMemoryFeedNewestFirst(t *testing.T) {
	store := NewInMemory(10)
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Push(context.Background(), entryAt(i, base)))
	}

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "student-2", entries[0].StudentName)
	assert.Equal(t, "student-0", entries[2].StudentName)
}

func TestInMemoryFeedCapped(t *testing.T) {
	store := NewInMemory(2)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Push(context.Background(), entryAt(i, base)))
	}

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "student-4", entries[0].StudentName)
	assert.Equal(t, "student-3", entries[1].StudentName)
}

func TestInMemoryFeedLimit(t *testing.T) {
	store := NewInMemory(10)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Push(context.Background(), entryAt(i, base)))
	}

	entries, err := store.Recent(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func entryAt(i int, base time.Time) (e models.FeedEntry) {
	e.StudentName = fmt.Sprintf("student-%d", i)
	e.CheckedInAt = base.Add(time.Duration(i) * time.Minute)
	return e
}
