package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/logger"
	"autoblog/models"
	"autoblog/services"
)

type TenantStore interface {
	ListAutoGenerate(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// BatchRunner 는 services.GenerationService 가 구현한다.
type BatchRunner interface {
	GenerateBatch(ctx context.Context, tenant *models.User, req services.BatchRequest) (*services.BatchResult, error)
}

// SitemapBuilder 는 services.SitemapService 가 구현한다.
type SitemapBuilder interface {
	Rebuild(ctx context.Context, u *models.User) (*models.Sitemap, error)
	RebuildAll(ctx context.Context) (rebuilt, failed int, err error)
}

// Runner 는 테넌트 한 명의 예약 배치를 실행한다. API 의 수동 트리거도 같은 경로를 쓴다.
type Runner struct {
	tenants  TenantStore
	batches  BatchRunner
	sitemaps SitemapBuilder
}

func NewRunner(tenants TenantStore, batches BatchRunner, sitemaps SitemapBuilder) *Runner {
	return &Runner{tenants: tenants, batches: batches, sitemaps: sitemaps}
}

// RunTenant 는 실행 시점의 테넌트 설정을 다시 읽는다. 비활성이거나 자동 생성이 꺼졌으면 건너뛴다.
// force 가 true 면 auto_generate 설정을 무시한다.
func (r *Runner) RunTenant(ctx context.Context, tenantID primitive.ObjectID, force bool) (*services.BatchResult, error) {
	u, err := r.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant %s: %w", tenantID.Hex(), err)
	}
	if !u.IsActive {
		return nil, services.ErrUserInactive
	}
	if !force && !u.Settings.Content.AutoGenerate {
		logger.DebugWithFields("auto generation disabled, skipping", logger.Fields{"owner_id": u.ID.Hex()})
		return nil, nil
	}

	res, err := r.batches.GenerateBatch(ctx, u, services.BatchRequest{Trigger: services.TriggerScheduled})
	if err != nil {
		if errors.Is(err, services.ErrBatchRunning) {
			logger.WarnWithFields("scheduled batch skipped: previous batch still running", logger.Fields{"owner_id": u.ID.Hex()})
			return nil, nil
		}
		return nil, err
	}
	if len(res.Posts) > 0 && r.sitemaps != nil {
		if _, err := r.sitemaps.Rebuild(ctx, u); err != nil && !errors.Is(err, services.ErrSitemapDisabled) {
			logger.ErrorWithFields("sitemap rebuild after batch failed", logger.Fields{"owner_id": u.ID.Hex(), "error": err.Error()})
		}
	}
	return res, nil
}
