// Package venue handles venue writes. Every committed write is announced to
// the registered changelog hooks so the search index follows the store.
package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/changelog"
	"github.com/kailas-cloud/venuedex/internal/domain"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/logger"
)

// Service handles venue CRUD.
type Service struct {
	repo  Repository
	hooks []changelog.Hook
	now   func() time.Time
}

// New creates a venue service.
func New(repo Repository, hooks ...changelog.Hook) *Service {
	return &Service{repo: repo, hooks: hooks, now: time.Now}
}

// Create stores a new venue. Missing venue and court ids are generated, the
// slug defaults to the slugified name.
func (s *Service) Create(ctx context.Context, v domvenue.Venue) (*domvenue.Venue, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	} else {
		exists, err := s.repo.Exists(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("check venue: %w", err)
		}
		if exists {
			return nil, domain.NewInputError("id", "venue %s already exists", v.ID)
		}
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	v.CreatedAt, v.UpdatedAt = now, now
	if err := s.save(ctx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Update replaces an existing venue and its courts. CreatedAt is kept.
func (s *Service) Update(ctx context.Context, id string, v domvenue.Venue) (*domvenue.Venue, error) {
	cur, err := s.repo.FindUnique(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}

	v.ID = id
	v.CreatedAt = cur.CreatedAt
	v.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := s.save(ctx, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Get returns a venue with its courts.
func (s *Service) Get(ctx context.Context, id string) (*domvenue.Venue, error) {
	v, err := s.repo.FindUnique(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

// Delete removes a venue and its courts.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete venue: %w", err)
	}
	s.publish(ctx, changelog.Event{ID: id, Op: changelog.OpDelete, At: s.now().UTC()})
	return nil
}

func (s *Service) save(ctx context.Context, v *domvenue.Venue) error {
	if v.Slug == "" {
		v.Slug = domvenue.Slugify(v.Name)
	}
	for i := range v.Courts {
		if v.Courts[i].ID == "" {
			v.Courts[i].ID = uuid.NewString()
		}
	}
	if err := v.Validate(); err != nil {
		return domain.NewInputError("venue", "%s", err.Error())
	}

	if _, err := s.repo.Save(ctx, v); err != nil {
		return fmt.Errorf("save venue: %w", err)
	}
	s.publish(ctx, changelog.Event{ID: v.ID, Op: changelog.OpUpsert, At: v.UpdatedAt})
	return nil
}

// publish runs every hook. The write has committed, so hook errors are
// logged and the next write or reindex repairs the index.
func (s *Service) publish(ctx context.Context, e changelog.Event) {
	for _, h := range s.hooks {
		if err := h.Publish(ctx, e); err != nil {
			logger.FromContext(ctx).Warn("changelog hook failed",
				zap.String("venue_id", e.ID),
				zap.String("op", string(e.Op)),
				zap.Error(err),
			)
		}
	}
}
