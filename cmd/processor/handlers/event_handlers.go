package handlers

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/events"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/services"
)

// SitemapRebuilder 는 services.SitemapService 가 구현한다.
type SitemapRebuilder interface {
	RebuildFor(ctx context.Context, ownerID primitive.ObjectID) (*models.Sitemap, error)
}

// HostInvalidator 는 cache.HostCache 가 구현한다.
type HostInvalidator interface {
	Invalidate(ctx context.Context, hosts ...string) error
}

// EventHandlers 이벤트 핸들러 모음
type EventHandlers struct {
	sitemaps SitemapRebuilder
	hosts    HostInvalidator
}

func NewEventHandlers(sitemaps SitemapRebuilder, hosts HostInvalidator) *EventHandlers {
	return &EventHandlers{sitemaps: sitemaps, hosts: hosts}
}

// HandlePost 는 공개 글 목록이 바뀌는 이벤트에서만 sitemap 을 다시 만든다.
// 초안으로 생성된 글은 sitemap 에 영향이 없다.
func (h *EventHandlers) HandlePost(ctx context.Context, e events.PostEvent) error {
	switch e.Type {
	case events.PostCreated:
		if e.Status != string(models.PostPublished) {
			return nil
		}
	case events.PostPublished, events.PostUnpublished, events.PostDeleted:
	default:
		return nil
	}
	return h.rebuild(ctx, e.OwnerID, string(e.Type))
}

// HandleDomain 은 이전/새 호스트의 캐시를 지우고, 호스트가 바뀌었으므로 sitemap 도 다시 만든다.
func (h *EventHandlers) HandleDomain(ctx context.Context, e events.DomainEvent) error {
	if len(e.Hosts) > 0 {
		if err := h.hosts.Invalidate(ctx, e.Hosts...); err != nil {
			return fmt.Errorf("invalidate hosts: %w", err)
		}
		logger.InfoWithFields("host cache invalidated", logger.Fields{
			"owner_id": e.OwnerID.Hex(),
			"hosts":    e.Hosts,
		})
	}
	return h.rebuild(ctx, e.OwnerID, string(e.Type))
}

// HandleBatch 는 배치 결과를 로그로만 남긴다.
func (h *EventHandlers) HandleBatch(_ context.Context, e events.BatchEvent) error {
	fields := logger.Fields{
		"owner_id":        e.OwnerID.Hex(),
		"history_id":      e.HistoryID.Hex(),
		"requested_count": e.RequestedCount,
		"success_count":   e.SuccessCount,
	}
	if e.Error != "" {
		fields["error"] = e.Error
		logger.WarnWithFields("generation batch failed", fields)
		return nil
	}
	logger.InfoWithFields("generation batch completed", fields)
	return nil
}

func (h *EventHandlers) rebuild(ctx context.Context, ownerID primitive.ObjectID, reason string) error {
	sm, err := h.sitemaps.RebuildFor(ctx, ownerID)
	if err != nil {
		// sitemap 을 끈 테넌트나 비활성/삭제된 테넌트는 재시도할 이유가 없다.
		if errors.Is(err, services.ErrSitemapDisabled) || errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrUserInactive) {
			logger.DebugWithFields("sitemap rebuild skipped", logger.Fields{"owner_id": ownerID.Hex(), "reason": err.Error()})
			return nil
		}
		return fmt.Errorf("rebuild sitemap for %s: %w", ownerID.Hex(), err)
	}
	logger.InfoWithFields("sitemap rebuilt", logger.Fields{
		"owner_id":  ownerID.Hex(),
		"hostname":  sm.Hostname,
		"url_count": sm.URLCount,
		"trigger":   reason,
	})
	return nil
}
