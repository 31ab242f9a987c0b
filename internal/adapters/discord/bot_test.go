package discord

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/catfactsnode/catfacts/internal/application"
	"github.com/catfactsnode/catfacts/internal/domain"
)

// pollCountingRepo counts list calls, which the promotion loop makes once per
// tick.
type pollCountingRepo struct {
	lists atomic.Int32
}

func (r *pollCountingRepo) Create(_ context.Context, value domain.Fact) (domain.Fact, error) {
	return value, nil
}

func (r *pollCountingRepo) GetByID(context.Context, uint) (domain.Fact, error) {
	return domain.Fact{}, domain.ErrNoFacts
}

func (r *pollCountingRepo) ListInStatus(context.Context, domain.Status) ([]domain.Fact, error) {
	r.lists.Add(1)
	return nil, nil
}

func (r *pollCountingRepo) TransitionStatus(context.Context, uint, domain.Status, domain.Status) (bool, error) {
	return false, nil
}

func (r *pollCountingRepo) DeleteInStatus(context.Context, uint, domain.Status) (bool, error) {
	return false, nil
}

func (r *pollCountingRepo) RandomInStatus(context.Context, domain.Status) (domain.Fact, error) {
	return domain.Fact{}, domain.ErrNoFacts
}

func (r *pollCountingRepo) CountByStatus(context.Context) (domain.StatusCounts, error) {
	return domain.StatusCounts{}, nil
}

func TestStartLoopsRunsSinglePromotionPollAcrossReconnects(t *testing.T) {
	repo := &pollCountingRepo{}
	svc := application.NewFactService(repo, nil)

	bot, err := New("test-token", svc, Config{PromotionInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	// A re-identify delivers READY again; the loops must not stack.
	bot.startLoops()
	bot.startLoops()
	bot.startLoops()

	time.Sleep(150 * time.Millisecond)
	close(bot.done)

	ticks := int(repo.lists.Load())
	require.Greater(t, ticks, 4, "promotion loop never ran")
	require.Less(t, ticks, 25, "duplicate promotion loops are running")
}
