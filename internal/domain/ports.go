package domain

import "context"

type FactRepository interface {
	Create(ctx context.Context, value Fact) (Fact, error)
	GetByID(ctx context.Context, id uint) (Fact, error)
	ListInStatus(ctx context.Context, status Status) ([]Fact, error)
	// TransitionStatus flips a fact from one status to another and reports
	// whether a row actually changed, so callers can detect stale controls.
	TransitionStatus(ctx context.Context, id uint, from, to Status) (bool, error)
	DeleteInStatus(ctx context.Context, id uint, status Status) (bool, error)
	RandomInStatus(ctx context.Context, status Status) (Fact, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

// ReviewPoster delivers a fact to the moderation surface with approve/deny
// controls attached. Implementations are optional; when absent the service
// skips the post and carries on.
type ReviewPoster interface {
	PostForReview(ctx context.Context, fact Fact) error
}

// Announcer publishes an approved fact to the public announcement surface.
type Announcer interface {
	Announce(ctx context.Context, fact Fact) error
}
