package cache

import (
	"context"
	"time"

	"kinmel/backend/internal/domain"
)

type PreviewCache interface {
	Get(ctx context.Context, key string) (*domain.AllocationPlan, bool, error)
	Set(ctx context.Context, key string, value *domain.AllocationPlan, ttl time.Duration) error
}

type NoopPreviewCache struct{}

func (NoopPreviewCache) Get(_ context.Context, _ string) (*domain.AllocationPlan, bool, error) {
	return nil, false, nil
}

func (NoopPreviewCache) Set(_ context.Context, _ string, _ *domain.AllocationPlan, _ time.Duration) error {
	return nil
}
