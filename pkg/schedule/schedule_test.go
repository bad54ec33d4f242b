package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualRunsTasksWhenDue(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })

	m.Advance(500 * time.Millisecond)
	require.Empty(t, order)
	require.Equal(t, 2, m.Pending())

	m.Advance(time.Second)
	require.Equal(t, []string{"a"}, order)

	m.Advance(time.Second)
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, 0, m.Pending())
}

func TestManualCancel(t *testing.T) {
	m := NewManual()
	ran := false
	task := m.AfterFunc(time.Second, func() { ran = true })

	require.True(t, task.Cancel())
	require.False(t, task.Cancel())
	m.Advance(time.Hour)
	require.False(t, ran)
}

func TestManualTaskCanScheduleAnother(t *testing.T) {
	m := NewManual()
	count := 0
	m.AfterFunc(time.Second, func() {
		count++
		m.AfterFunc(time.Second, func() { count++ })
	})
	m.Advance(3 * time.Second)
	require.Equal(t, 2, count)
}

func TestRealSchedulerFiresAndCancels(t *testing.T) {
	var fired atomic.Int32
	Real{}.AfterFunc(time.Millisecond, func() { fired.Add(1) })
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	task := Real{}.AfterFunc(time.Hour, func() { fired.Add(1) })
	require.True(t, task.Cancel())
}
