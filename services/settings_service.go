package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"autoblog/config"
	"autoblog/generator"
	"autoblog/models"
)

// SettingsService 는 테넌트 설정 > 시스템 설정(settings 컬렉션) > config.yaml 순서로 값을 결정한다.
type SettingsService struct {
	store   SettingsStore
	gen     config.GenerationConfig
	llm     config.LLMConfig
	sched   config.SchedulerConfig
	sitemap config.SitemapConfig
}

func NewSettingsService(store SettingsStore, cfg config.AppConfig) *SettingsService {
	return &SettingsService{
		store:   store,
		gen:     cfg.Generation,
		llm:     cfg.LLM,
		sched:   cfg.Scheduler,
		sitemap: cfg.Sitemap,
	}
}

// EffectiveSettings 는 관리자 화면에 보이는 현재 전역 값이다.
type EffectiveSettings struct {
	Model          string `json:"model"`
	PostsPerBatch  int    `json:"posts_per_batch"`
	MinWords       int    `json:"min_words"`
	MaxWords       int    `json:"max_words"`
	DefaultCron    string `json:"default_cron"`
	SitemapEnabled bool   `json:"sitemap_enabled"`
}

// ResolvedSettings 는 테넌트 한 명에 대해 배치에 적용되는 값이다.
type ResolvedSettings struct {
	Generator     generator.Settings
	PostsPerBatch int
	AutoPublish   bool
}

func (s *SettingsService) System(ctx context.Context) (EffectiveSettings, error) {
	stored, err := s.store.Get(ctx)
	if err != nil {
		return EffectiveSettings{}, fmt.Errorf("load system settings: %w", err)
	}
	return s.effective(stored), nil
}

func (s *SettingsService) effective(stored *models.SystemSettings) EffectiveSettings {
	out := EffectiveSettings{
		Model:          firstString(stored.Model, s.llm.Model),
		PostsPerBatch:  firstPositive(stored.PostsPerBatch, s.gen.PostsPerBatch),
		MinWords:       firstPositive(stored.MinWords, s.gen.MinWords),
		MaxWords:       firstPositive(stored.MaxWords, s.gen.MaxWords),
		DefaultCron:    firstString(stored.DefaultCron, s.sched.DefaultCron),
		SitemapEnabled: s.sitemap.Enabled,
	}
	if stored.SitemapEnabled != nil {
		out.SitemapEnabled = *stored.SitemapEnabled
	}
	return out
}

type UpdateSystemSettingsInput struct {
	Model          *string `json:"model"`
	PostsPerBatch  *int    `json:"posts_per_batch"`
	MinWords       *int    `json:"min_words"`
	MaxWords       *int    `json:"max_words"`
	DefaultCron    *string `json:"default_cron"`
	SitemapEnabled *bool   `json:"sitemap_enabled"`
}

// Update 는 주어진 필드만 바꿔 settings 컬렉션에 저장한다.
func (s *SettingsService) Update(ctx context.Context, in UpdateSystemSettingsInput) (EffectiveSettings, error) {
	stored, err := s.store.Get(ctx)
	if err != nil {
		return EffectiveSettings{}, fmt.Errorf("load system settings: %w", err)
	}
	if in.Model != nil {
		stored.Model = *in.Model
	}
	if in.PostsPerBatch != nil {
		if *in.PostsPerBatch < 1 || *in.PostsPerBatch > maxBatchSize {
			return EffectiveSettings{}, fmt.Errorf("%w: posts_per_batch must be between 1 and %d", ErrValidation, maxBatchSize)
		}
		stored.PostsPerBatch = *in.PostsPerBatch
	}
	if in.MinWords != nil {
		stored.MinWords = *in.MinWords
	}
	if in.MaxWords != nil {
		stored.MaxWords = *in.MaxWords
	}
	if in.DefaultCron != nil {
		if err := ValidateCron(*in.DefaultCron); err != nil {
			return EffectiveSettings{}, err
		}
		stored.DefaultCron = *in.DefaultCron
	}
	if in.SitemapEnabled != nil {
		v := *in.SitemapEnabled
		stored.SitemapEnabled = &v
	}

	eff := s.effective(stored)
	if err := validateWordRange(eff.MinWords, eff.MaxWords); err != nil {
		return EffectiveSettings{}, err
	}
	stored.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, stored); err != nil {
		return EffectiveSettings{}, fmt.Errorf("save system settings: %w", err)
	}
	return eff, nil
}

// Resolve 는 테넌트 값이 비어 있으면 시스템 값을 쓴다.
func (s *SettingsService) Resolve(ctx context.Context, u *models.User) (ResolvedSettings, error) {
	sys, err := s.System(ctx)
	if err != nil {
		return ResolvedSettings{}, err
	}
	c := u.Settings.Content
	min := firstPositive(c.MinWords, sys.MinWords)
	max := firstPositive(c.MaxWords, sys.MaxWords)
	if min > max {
		min, max = max, min
	}
	return ResolvedSettings{
		Generator: generator.Settings{
			MinWords:    min,
			MaxWords:    max,
			Model:       firstString(c.Model, sys.Model),
			Temperature: s.llm.Temperature,
			MaxTokens:   s.llm.MaxTokens,
			Language:    u.Settings.Blog.Language,
		},
		PostsPerBatch: firstPositive(c.PostsPerBatch, sys.PostsPerBatch),
		AutoPublish:   c.AutoPublish,
	}, nil
}

// SitemapEnabled 는 전역 스위치와 테넌트 SEO 설정을 모두 확인한다.
func (s *SettingsService) SitemapEnabled(ctx context.Context, u *models.User) bool {
	sys, err := s.System(ctx)
	if err != nil {
		return false
	}
	return sys.SitemapEnabled && u.Settings.SEO.UseSitemap
}

const maxBatchSize = 50

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCron 은 5필드 표준 cron 식(또는 @daily 같은 descriptor)인지 확인한다.
func ValidateCron(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("%w: invalid cron expression %q: %v", ErrValidation, expr, err)
	}
	return nil
}

func validateWordRange(min, max int) error {
	if min <= 0 || max <= 0 || min > max {
		return fmt.Errorf("%w: word range %d-%d is invalid", ErrValidation, min, max)
	}
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
