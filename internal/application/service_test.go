package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catfactsnode/catfacts/internal/domain"
)

// memRepo is an in-memory FactRepository for service tests.
type memRepo struct {
	nextID uint
	facts  map[uint]domain.Fact
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, facts: make(map[uint]domain.Fact)}
}

func (r *memRepo) Create(_ context.Context, value domain.Fact) (domain.Fact, error) {
	value.ID = r.nextID
	value.Timestamp = time.Now()
	r.nextID++
	r.facts[value.ID] = value
	return value, nil
}

func (r *memRepo) GetByID(_ context.Context, id uint) (domain.Fact, error) {
	f, ok := r.facts[id]
	if !ok {
		return domain.Fact{}, domain.ErrNoFacts
	}
	return f, nil
}

func (r *memRepo) ListInStatus(_ context.Context, status domain.Status) ([]domain.Fact, error) {
	result := make([]domain.Fact, 0)
	for id := uint(1); id < r.nextID; id++ {
		if f, ok := r.facts[id]; ok && f.Status == status {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *memRepo) TransitionStatus(_ context.Context, id uint, from, to domain.Status) (bool, error) {
	f, ok := r.facts[id]
	if !ok || f.Status != from {
		return false, nil
	}
	f.Status = to
	r.facts[id] = f
	return true, nil
}

func (r *memRepo) DeleteInStatus(_ context.Context, id uint, status domain.Status) (bool, error) {
	f, ok := r.facts[id]
	if !ok || f.Status != status {
		return false, nil
	}
	delete(r.facts, id)
	return true, nil
}

func (r *memRepo) RandomInStatus(ctx context.Context, status domain.Status) (domain.Fact, error) {
	matches, _ := r.ListInStatus(ctx, status)
	if len(matches) == 0 {
		return domain.Fact{}, domain.ErrNoFacts
	}
	return matches[0], nil
}

func (r *memRepo) CountByStatus(_ context.Context) (domain.StatusCounts, error) {
	var counts domain.StatusCounts
	for _, f := range r.facts {
		switch f.Status {
		case domain.StatusPending:
			counts.Pending++
		case domain.StatusVoting:
			counts.Voting++
		case domain.StatusApproved:
			counts.Approved++
		}
	}
	return counts, nil
}

type recordingPoster struct{ posted []domain.Fact }

func (p *recordingPoster) PostForReview(_ context.Context, fact domain.Fact) error {
	p.posted = append(p.posted, fact)
	return nil
}

type recordingAnnouncer struct{ announced []domain.Fact }

func (a *recordingAnnouncer) Announce(_ context.Context, fact domain.Fact) error {
	a.announced = append(a.announced, fact)
	return nil
}

func TestSubmitWebStoresPendingVerbatim(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewFactService(repo, NewRateLimiter(SubmissionCooldown))

	fact, err := svc.SubmitWeb(ctx, "Cats sleep 70% of their lives.", "Ana", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fact.Status)
	assert.Equal(t, "Cats sleep 70% of their lives.", fact.Text)
	assert.Equal(t, "Ana", fact.Author)
	assert.Equal(t, "203.0.113.9", fact.SubmitterAddress)
}

func TestSubmitWebRejectsEmptyTextBeforeLimiter(t *testing.T) {
	ctx := context.Background()
	svc := NewFactService(newMemRepo(), NewRateLimiter(SubmissionCooldown))

	_, err := svc.SubmitWeb(ctx, "   ", "Ana", "203.0.113.9")
	assert.ErrorIs(t, err, domain.ErrEmptyText)

	// The failed validation must not have consumed the address's window.
	_, err = svc.SubmitWeb(ctx, "real fact", "Ana", "203.0.113.9")
	assert.NoError(t, err)
}

func TestSubmitWebThrottlesSameAddress(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewFactService(repo, NewRateLimiter(SubmissionCooldown))

	_, err := svc.SubmitWeb(ctx, "first", "", "203.0.113.9")
	require.NoError(t, err)

	_, err = svc.SubmitWeb(ctx, "second", "", "203.0.113.9")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Pending, "throttled submission must not store a row")
}

func TestSubmitChatEntersVotingAndPostsReview(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	poster := &recordingPoster{}
	svc := NewFactService(repo, nil)
	svc.SetReviewPoster(poster)

	fact, err := svc.SubmitChat(ctx, "A cat's nose print is unique.", "whiskers_fan")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVoting, fact.Status)
	require.Len(t, poster.posted, 1)
	assert.Equal(t, fact.ID, poster.posted[0].ID)
}

func TestSubmitChatEmptyTextStoresNothing(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	poster := &recordingPoster{}
	svc := NewFactService(repo, nil)
	svc.SetReviewPoster(poster)

	_, err := svc.SubmitChat(ctx, "", "whiskers_fan")
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	assert.Empty(t, poster.posted)

	counts, _ := repo.CountByStatus(ctx)
	assert.EqualValues(t, 0, counts.Voting)
}

func TestPromotePendingFlipsEveryPendingRowOnce(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	poster := &recordingPoster{}
	svc := NewFactService(repo, NewRateLimiter(SubmissionCooldown))
	svc.SetReviewPoster(poster)

	_, err := svc.SubmitWeb(ctx, "web one", "", "203.0.113.1")
	require.NoError(t, err)
	_, err = svc.SubmitWeb(ctx, "web two", "", "203.0.113.2")
	require.NoError(t, err)
	already, err := svc.SubmitChat(ctx, "chat one", "someone")
	require.NoError(t, err)

	promoted, err := svc.PromotePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, promoted)
	assert.Len(t, poster.posted, 3, "two promotions plus the chat submission")

	voting, err := svc.ListFacts(ctx, domain.StatusVoting)
	require.NoError(t, err)
	assert.Len(t, voting, 3)

	// A row already in voting is untouched by the poll.
	got, err := repo.GetByID(ctx, already.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVoting, got.Status)

	// Nothing pending left: next tick is a no-op.
	promoted, err = svc.PromotePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)
}

// staleReadRepo simulates a second promotion poll having already won every
// row between this poll's list and its guarded flip.
type staleReadRepo struct{ *memRepo }

func (r *staleReadRepo) TransitionStatus(context.Context, uint, domain.Status, domain.Status) (bool, error) {
	return false, nil
}

func TestPromotePendingSkipsReviewPostWhenGuardMisses(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	poster := &recordingPoster{}
	svc := NewFactService(&staleReadRepo{repo}, nil)
	svc.SetReviewPoster(poster)

	_, err := repo.Create(ctx, domain.Fact{Text: "contested web fact", Status: domain.StatusPending})
	require.NoError(t, err)

	promoted, err := svc.PromotePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)
	assert.Empty(t, poster.posted, "a row the guard did not move must not be posted")
}

func TestApproveAnnouncesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	announcer := &recordingAnnouncer{}
	svc := NewFactService(repo, nil)
	svc.SetAnnouncer(announcer)

	fact, err := svc.SubmitChat(ctx, "Cats have 32 muscles in each ear.", "Ana")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, fact.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.Len(t, announcer.announced, 1)
	assert.Equal(t, fact.Text, announcer.announced[0].Text)

	// Second click on a stale control: no error leak, no second announcement.
	_, err = svc.Approve(ctx, fact.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
	assert.Len(t, announcer.announced, 1)

	got, err := svc.RandomApproved(ctx)
	require.NoError(t, err)
	assert.Equal(t, fact.ID, got.ID)
}

func TestDenyDeletesAndRejectsRepeats(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewFactService(repo, nil)

	fact, err := svc.SubmitChat(ctx, "dubious fact", "troll")
	require.NoError(t, err)

	require.NoError(t, svc.Deny(ctx, fact.ID))
	assert.ErrorIs(t, svc.Deny(ctx, fact.ID), domain.ErrAlreadyDecided)

	_, err = repo.GetByID(ctx, fact.ID)
	assert.ErrorIs(t, err, domain.ErrNoFacts)

	_, err = svc.RandomApproved(ctx)
	assert.ErrorIs(t, err, domain.ErrNoFacts)
}

func TestApproveDenyRaceOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewFactService(repo, nil)

	fact, err := svc.SubmitChat(ctx, "contested fact", "Ana")
	require.NoError(t, err)

	_, approveErr := svc.Approve(ctx, fact.ID)
	denyErr := svc.Deny(ctx, fact.ID)

	require.NoError(t, approveErr)
	assert.ErrorIs(t, denyErr, domain.ErrAlreadyDecided)

	got, err := repo.GetByID(ctx, fact.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
}
