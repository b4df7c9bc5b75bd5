package slots

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultPool(t *testing.T) *Pool {
	t.Helper()
	p, err := NewPool(DefaultCatalog)
	require.NoError(t, err)
	return p
}

func TestNewPool_RejectsEmptyCatalog(t *testing.T) {
	_, err := NewPool(nil)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = NewPool([]string{"10:00 AM", " "})
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestNewPool_DropsDuplicates(t *testing.T) {
	p, err := NewPool([]string{"10:00 AM", "11:00 AM", "10:00 AM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM", "11:00 AM"}, p.Available())
}

func TestPool_BookRemovesSlotForever(t *testing.T) {
	p := newDefaultPool(t)

	require.True(t, p.IsAvailable("02:00 PM"))
	require.True(t, p.Book("02:00 PM"))

	assert.False(t, p.IsAvailable("02:00 PM"))
	assert.False(t, p.Book("02:00 PM"))
	assert.Equal(t, []string{"10:00 AM", "11:00 AM", "12:00 PM", "03:00 PM", "04:00 PM"}, p.Available())
	assert.Equal(t, 5, p.Remaining())
}

func TestPool_MatchIsCaseSensitiveOnCanonicalLabels(t *testing.T) {
	p := newDefaultPool(t)
	assert.False(t, p.IsAvailable("10:00 am"))
	assert.False(t, p.Book("10:00 am"))
	assert.False(t, p.Book("13:00 PM"))
	assert.Equal(t, len(DefaultCatalog), p.Remaining())
}

func TestReservation_CancelRestoresCatalogOrder(t *testing.T) {
	p := newDefaultPool(t)

	r, ok := p.Reserve("11:00 AM")
	require.True(t, ok)
	assert.Equal(t, "11:00 AM", r.Label())
	assert.False(t, p.IsAvailable("11:00 AM"), "reserved slot is not available to others")

	r.Cancel()
	assert.Equal(t, DefaultCatalog, p.Available())

	r.Cancel()
	assert.Equal(t, len(DefaultCatalog), p.Remaining())
}

func TestReservation_CancelAfterCommitIsNoop(t *testing.T) {
	p := newDefaultPool(t)

	r, ok := p.Reserve("04:00 PM")
	require.True(t, ok)
	r.Commit()
	r.Cancel()

	assert.False(t, p.IsAvailable("04:00 PM"))
}

func TestPool_ConcurrentBookingHasExactlyOneWinner(t *testing.T) {
	p := newDefaultPool(t)

	const contenders = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if p.Book("12:00 PM") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, len(DefaultCatalog)-1, p.Remaining())
}
