package ticket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterSeq struct {
	n atomic.Int64
}

func (s *counterSeq) NextTicketSeq(ctx context.Context) (int64, error) {
	return s.n.Add(1), nil
}

type failingSeq struct{}

func (failingSeq) NextTicketSeq(ctx context.Context) (int64, error) {
	return 0, errors.New("boom")
}

func TestGenerator_Format(t *testing.T) {
	g := NewGenerator("")

	assert.Equal(t, "LJ00000001", g.Format(1))
	assert.Equal(t, "LJ0000000Z", g.Format(35))
	assert.Equal(t, "LJ00000010", g.Format(36))
	assert.Len(t, g.Format(1<<40), len(DefaultPrefix)+digits)
}

func TestGenerator_NextUniqueUnderConcurrency(t *testing.T) {
	g := NewGenerator(DefaultPrefix)
	seq := &counterSeq{}

	const n = 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tn, err := g.Next(context.Background(), seq)
			assert.NoError(t, err)
			mu.Lock()
			seen[tn] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
}

func TestGenerator_NextError(t *testing.T) {
	_, err := NewGenerator("").Next(context.Background(), failingSeq{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticket.Generator.Next")
}
