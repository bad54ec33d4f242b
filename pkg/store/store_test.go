package store

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct {
	N     int
	Items []string
}

func TestUpdateNotifiesInOrder(t *testing.T) {
	s := New(counter{})
	var seen []int
	s.Subscribe(func(c counter) { seen = append(seen, c.N) })

	for i := 0; i < 3; i++ {
		s.Update(func(c counter) (counter, bool) {
			c.N++
			return c, true
		})
	}
	require.Equal(t, []int{1, 2, 3}, seen)
	require.Equal(t, 3, s.Get().N)
}

func TestUpdateWithoutChangeDoesNotNotify(t *testing.T) {
	s := New(counter{N: 1})
	calls := 0
	s.Subscribe(func(counter) { calls++ })

	_, changed := s.Update(func(c counter) (counter, bool) { return c, false })
	require.False(t, changed)
	require.Equal(t, 0, calls)
}

func TestSnapshotsAreNotAliased(t *testing.T) {
	s := New(counter{})
	var snapshots []counter
	s.Subscribe(func(c counter) { snapshots = append(snapshots, c) })

	for _, item := range []string{"a", "b"} {
		s.Update(func(c counter) (counter, bool) {
			c.Items = append(slices.Clone(c.Items), item)
			return c, true
		})
	}
	require.Equal(t, []string{"a"}, snapshots[0].Items)
	require.Equal(t, []string{"a", "b"}, snapshots[1].Items)
}

func TestUnsubscribe(t *testing.T) {
	s := New(counter{})
	calls := 0
	cancel := s.Subscribe(func(counter) { calls++ })
	s.Set(counter{N: 1})
	cancel()
	s.Set(counter{N: 2})
	require.Equal(t, 1, calls)
}

func TestClosedStoreIgnoresUpdates(t *testing.T) {
	s := New(counter{N: 1})
	calls := 0
	s.Subscribe(func(counter) { calls++ })
	s.Close()

	st, changed := s.Update(func(c counter) (counter, bool) {
		c.N = 5
		return c, true
	})
	require.False(t, changed)
	require.Equal(t, 1, st.N)
	require.Equal(t, 0, calls)
	require.True(t, s.IsClosed())
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	s := New(counter{})
	var mu sync.Mutex
	var seen []int
	s.Subscribe(func(c counter) {
		mu.Lock()
		seen = append(seen, c.N)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(c counter) (counter, bool) {
				c.N++
				return c, true
			})
		}()
	}
	wg.Wait()

	require.Equal(t, 50, s.Get().N)
	require.Len(t, seen, 50)
	require.True(t, slices.IsSorted(seen))
}

func TestLatestKeepsOnlyMostRecent(t *testing.T) {
	s := New(counter{})
	ch, cancel := Latest(s)
	defer cancel()

	s.Set(counter{N: 1})
	s.Set(counter{N: 2})
	s.Set(counter{N: 3})

	got := <-ch
	require.Equal(t, 3, got.N)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %v", extra)
	default:
	}
}

func TestLatestCancelClosesChannel(t *testing.T) {
	s := New(counter{})
	ch, cancel := Latest(s)
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)
	s.Set(counter{N: 1})
}
