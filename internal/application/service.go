package application

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/catfactsnode/catfacts/internal/domain"
)

// SubmissionCooldown is how long a web submitter must wait between accepted
// submissions from the same address.
const SubmissionCooldown = 600 * time.Second

type FactService struct {
	repo     domain.FactRepository
	limiter  *RateLimiter
	reviewer domain.ReviewPoster
	announce domain.Announcer
}

func NewFactService(repo domain.FactRepository, limiter *RateLimiter) *FactService {
	return &FactService{repo: repo, limiter: limiter}
}

// SetReviewPoster wires the moderation surface. Optional; without one,
// chat submissions and promotions store rows but post nothing.
func (s *FactService) SetReviewPoster(p domain.ReviewPoster) { s.reviewer = p }

// SetAnnouncer wires the public announcement surface. Optional.
func (s *FactService) SetAnnouncer(a domain.Announcer) { s.announce = a }

// SubmitWeb stores a web-form submission as pending, subject to the
// per-address cooldown.
func (s *FactService) SubmitWeb(ctx context.Context, text, author, addr string) (domain.Fact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Fact{}, domain.ErrEmptyText
	}
	if s.limiter != nil && !s.limiter.Allow(addr, time.Now()) {
		return domain.Fact{}, domain.ErrRateLimited
	}

	return s.repo.Create(ctx, domain.Fact{
		Text:             text,
		Author:           strings.TrimSpace(author),
		Status:           domain.StatusPending,
		SubmitterAddress: addr,
	})
}

// SubmitChat stores an in-chat submission directly at voting and posts a
// review copy when a moderation surface is configured.
func (s *FactService) SubmitChat(ctx context.Context, text, author string) (domain.Fact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Fact{}, domain.ErrEmptyText
	}

	fact, err := s.repo.Create(ctx, domain.Fact{
		Text:   text,
		Author: strings.TrimSpace(author),
		Status: domain.StatusVoting,
	})
	if err != nil {
		return domain.Fact{}, err
	}

	if s.reviewer != nil {
		if err := s.reviewer.PostForReview(ctx, fact); err != nil {
			log.Printf("review post for fact #%d failed: %v", fact.ID, err)
		}
	}
	return fact, nil
}

// PromotePending moves every pending (web-submitted) fact into voting and
// posts each to the moderation surface. The guarded flip happens first and
// only a row it actually moved gets a review post, so a stale read (another
// poll already won the row) produces no duplicate post. Returns how many rows
// were promoted; an empty queue is a no-op.
func (s *FactService) PromotePending(ctx context.Context) (int, error) {
	pending, err := s.repo.ListInStatus(ctx, domain.StatusPending)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, fact := range pending {
		ok, err := s.repo.TransitionStatus(ctx, fact.ID, domain.StatusPending, domain.StatusVoting)
		if err != nil {
			return promoted, err
		}
		if !ok {
			continue
		}
		promoted++

		fact.Status = domain.StatusVoting
		if s.reviewer != nil {
			if err := s.reviewer.PostForReview(ctx, fact); err != nil {
				log.Printf("review post for fact #%d failed: %v", fact.ID, err)
			}
		}
	}
	return promoted, nil
}

// Approve finalizes a voting fact and announces it once. A fact that is no
// longer voting (already approved, or denied meanwhile) returns
// ErrAlreadyDecided and triggers no second announcement.
func (s *FactService) Approve(ctx context.Context, id uint) (domain.Fact, error) {
	ok, err := s.repo.TransitionStatus(ctx, id, domain.StatusVoting, domain.StatusApproved)
	if err != nil {
		return domain.Fact{}, err
	}
	if !ok {
		return domain.Fact{}, domain.ErrAlreadyDecided
	}

	fact, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Fact{}, err
	}

	if s.announce != nil {
		if err := s.announce.Announce(ctx, fact); err != nil {
			log.Printf("announcement for fact #%d failed: %v", fact.ID, err)
		}
	}
	return fact, nil
}

// Deny removes a voting fact entirely. Repeated or stale denials return
// ErrAlreadyDecided.
func (s *FactService) Deny(ctx context.Context, id uint) error {
	ok, err := s.repo.DeleteInStatus(ctx, id, domain.StatusVoting)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyDecided
	}
	return nil
}

func (s *FactService) RandomApproved(ctx context.Context) (domain.Fact, error) {
	return s.repo.RandomInStatus(ctx, domain.StatusApproved)
}

func (s *FactService) ListFacts(ctx context.Context, status domain.Status) ([]domain.Fact, error) {
	return s.repo.ListInStatus(ctx, status)
}

func (s *FactService) Stats(ctx context.Context) (domain.StatusCounts, error) {
	return s.repo.CountByStatus(ctx)
}
