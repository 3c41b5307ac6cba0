package feed

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecencyLog_RecordMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	l := NewRecencyLog(newMemKV(), stepClock())

	require.NoError(t, l.Record(ctx, "p1"))
	require.NoError(t, l.Record(ctx, "p2"))
	require.NoError(t, l.Record(ctx, "p3"))

	entries := l.ReadAll(ctx)
	assert.Equal(t, []string{"p3", "p2", "p1"}, productIDs(entries))
	assert.Greater(t, entries[0].ViewedAt, entries[1].ViewedAt)
}

func TestRecencyLog_RecordDedupes(t *testing.T) {
	ctx := context.Background()
	l := NewRecencyLog(newMemKV(), stepClock())

	for _, id := range []string{"p1", "p2", "p1"} {
		require.NoError(t, l.Record(ctx, id))
	}
	assert.Equal(t, []string{"p1", "p2"}, productIDs(l.ReadAll(ctx)))
}

func TestRecencyLog_Cap(t *testing.T) {
	ctx := context.Background()
	l := NewRecencyLog(newMemKV(), stepClock())

	for i := 0; i < RecencyCap+5; i++ {
		require.NoError(t, l.Record(ctx, "p"+strconv.Itoa(i)))
	}
	entries := l.ReadAll(ctx)
	require.Len(t, entries, RecencyCap)
	assert.Equal(t, "p16", entries[0].ProductID)
	assert.Equal(t, "p5", entries[RecencyCap-1].ProductID)
}

func TestRecencyLog_RecordRejectsEmptyID(t *testing.T) {
	l := NewRecencyLog(newMemKV(), stepClock())
	assert.Error(t, l.Record(context.Background(), "  "))
}

func TestRecencyLog_ReadAllFailsSoft(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"not json", "{oops", nil},
		{"wrong shape", `{"id":"p1"}`, nil},
		{"empty array", `[]`, nil},
		{"drops invalid entries", `[{"id":"","at":5},{"id":"p1","at":0},{"id":"p2","at":3}]`, []string{"p2"}},
		{"sorts and dedupes", `[{"id":"a","at":1},{"id":"b","at":9},{"id":"a","at":4}]`, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newMemKV()
			kv.m[keyRecentlyViewed] = tt.raw
			got := NewRecencyLog(kv, stepClock()).ReadAll(context.Background())
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, productIDs(got))
		})
	}
}

func TestRecencyLog_StorageErrorReadsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk full")
	assert.Empty(t, NewRecencyLog(kv, stepClock()).ReadAll(context.Background()))
}

func TestRecencyLog_Clear(t *testing.T) {
	ctx := context.Background()
	l := NewRecencyLog(newMemKV(), stepClock())
	require.NoError(t, l.Record(ctx, "p1"))
	require.NoError(t, l.Clear(ctx))
	assert.Empty(t, l.ReadAll(ctx))
}

func TestRecencyLog_RecordKeepsLogWhenReadFails(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	l := NewRecencyLog(kv, stepClock())
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(ctx, "p"+strconv.Itoa(i)))
	}

	kv.failReads(errors.New("connection reset by peer"))
	err := l.Record(ctx, "px")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read recency log")

	kv.failReads(nil)
	assert.Equal(t, []string{"p4", "p3", "p2", "p1", "p0"}, productIDs(l.ReadAll(ctx)))
}

func TestRecencyLog_ConcurrentRecordsAreKept(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.getDelay = 5 * time.Millisecond
	l := NewRecencyLog(kv, stepClock())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, l.Record(ctx, id))
		}("p" + strconv.Itoa(i))
	}
	wg.Wait()

	got := productIDs(l.ReadAll(ctx))
	assert.Len(t, got, 10)
	for i := 0; i < 10; i++ {
		assert.Contains(t, got, "p"+strconv.Itoa(i))
	}
}
