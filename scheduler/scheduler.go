package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/config"
	"autoblog/logger"
	"autoblog/models"
)

// 생성 주기별 cron 식
var frequencyCron = map[models.Frequency]string{
	models.FrequencyHourly: "0 * * * *",
	models.FrequencyDaily:  "0 3 * * *",
	models.FrequencyWeekly: "0 3 * * 1",
}

// sitemap 재생성 주기별 cron 식. 생성 배치보다 30분 늦게 돈다.
var sitemapCron = map[string]string{
	"hourly": "30 * * * *",
	"daily":  "30 4 * * *",
	"weekly": "30 4 * * 1",
}

// staleAfter 보다 오래 processing 인 이력은 중단된 배치로 보고 failed 로 닫는다.
const staleAfter = time.Hour

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronFor 는 테넌트 콘텐츠 설정의 실행 주기를 cron 식으로 바꾼다.
// custom 식이 비어 있거나 잘못되었으면 fallback 을 쓴다.
func CronFor(c models.ContentSettings, fallback string) string {
	if c.Frequency == models.FrequencyCustom {
		if _, err := parser.Parse(c.CustomCron); err == nil {
			return c.CustomCron
		}
		return fallback
	}
	if expr, ok := frequencyCron[c.Frequency]; ok {
		return expr
	}
	return fallback
}

func SitemapCronFor(frequency string) string {
	if expr, ok := sitemapCron[frequency]; ok {
		return expr
	}
	return sitemapCron["daily"]
}

type DomainReverifier interface {
	ReverifyPending(ctx context.Context) (checked, verified int, err error)
}

type StaleHistories interface {
	FailStale(ctx context.Context, before time.Time, reason string) (int64, error)
}

type tenantJob struct {
	spec string
	id   cron.EntryID
}

// Scheduler 는 프로세스 안에서 테넌트별 생성 작업과 전역 유지보수 작업을 돌린다.
type Scheduler struct {
	cron      *cron.Cron
	runner    *Runner
	tenants   TenantStore
	sitemaps  SitemapBuilder
	domains   DomainReverifier
	histories StaleHistories
	cfg       config.SchedulerConfig
	domainCfg config.DomainConfig
	sitemap   config.SitemapConfig

	mu   sync.Mutex
	jobs map[primitive.ObjectID]tenantJob
	ctx  context.Context
}

type Deps struct {
	Runner    *Runner
	Tenants   TenantStore
	Sitemaps  SitemapBuilder
	Domains   DomainReverifier
	Histories StaleHistories
}

func New(cfg config.AppConfig, deps Deps) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}
	if _, err := parser.Parse(cfg.Scheduler.DefaultCron); err != nil {
		return nil, fmt.Errorf("invalid scheduler.default_cron %q: %w", cfg.Scheduler.DefaultCron, err)
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	return &Scheduler{
		cron:      c,
		runner:    deps.Runner,
		tenants:   deps.Tenants,
		sitemaps:  deps.Sitemaps,
		domains:   deps.Domains,
		histories: deps.Histories,
		cfg:       cfg.Scheduler,
		domainCfg: cfg.Domain,
		sitemap:   cfg.Sitemap,
		jobs:      map[primitive.ObjectID]tenantJob{},
		ctx:       context.Background(),
	}, nil
}

// Start 는 작업을 등록하고 ctx 가 끝날 때까지 실행한다. 반환 전에 실행 중인 작업이 끝나기를 기다린다.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.registerSystemJobs(); err != nil {
		return err
	}
	if err := s.Reload(ctx); err != nil {
		// 첫 로드 실패는 다음 주기 reload 에서 복구한다.
		logger.ErrorWithFields("initial scheduler reload failed", logger.Fields{"error": err.Error()})
	}
	s.cron.Start()
	logger.InfoWithFields("scheduler started", logger.Fields{"timezone": s.cfg.Timezone, "tenants": s.JobCount()})

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	logger.Log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) registerSystemJobs() error {
	every := func(d time.Duration) string { return "@every " + d.String() }

	if _, err := s.cron.AddFunc(every(s.cfg.ReloadInterval), func() {
		if err := s.Reload(s.context()); err != nil {
			logger.ErrorWithFields("scheduler reload failed", logger.Fields{"error": err.Error()})
		}
	}); err != nil {
		return fmt.Errorf("register reload job: %w", err)
	}

	if s.sitemaps != nil && s.sitemap.Enabled {
		if _, err := s.cron.AddFunc(SitemapCronFor(s.sitemap.UpdateFrequency), s.rebuildSitemaps); err != nil {
			return fmt.Errorf("register sitemap job: %w", err)
		}
	}

	if s.domains != nil && s.domainCfg.ReverifyEnabled {
		if _, err := s.cron.AddFunc(every(s.domainCfg.VerificationInterval), s.reverifyDomains); err != nil {
			return fmt.Errorf("register domain job: %w", err)
		}
	}

	if s.histories != nil {
		if _, err := s.cron.AddFunc(every(15*time.Minute), s.failStale); err != nil {
			return fmt.Errorf("register stale history job: %w", err)
		}
	}
	return nil
}

// Reload 는 auto_generate 가 켜진 테넌트 목록과 등록된 작업을 맞춘다.
// 주기가 바뀐 테넌트는 다시 등록하고 목록에서 빠진 테넌트는 제거한다.
func (s *Scheduler) Reload(ctx context.Context) error {
	users, err := s.tenants.ListAutoGenerate(ctx)
	if err != nil {
		return fmt.Errorf("list auto-generate tenants: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[primitive.ObjectID]struct{}, len(users))
	added, removed := 0, 0
	for _, u := range users {
		seen[u.ID] = struct{}{}
		spec := CronFor(u.Settings.Content, s.cfg.DefaultCron)
		if cur, ok := s.jobs[u.ID]; ok {
			if cur.spec == spec {
				continue
			}
			s.cron.Remove(cur.id)
			delete(s.jobs, u.ID)
		}
		tenantID := u.ID
		id, err := s.cron.AddFunc(spec, func() { s.runTenant(tenantID) })
		if err != nil {
			logger.ErrorWithFields("register tenant job failed", logger.Fields{"owner_id": u.ID.Hex(), "cron": spec, "error": err.Error()})
			continue
		}
		s.jobs[u.ID] = tenantJob{spec: spec, id: id}
		added++
	}
	for tenantID, job := range s.jobs {
		if _, ok := seen[tenantID]; !ok {
			s.cron.Remove(job.id)
			delete(s.jobs, tenantID)
			removed++
		}
	}
	if added > 0 || removed > 0 {
		logger.InfoWithFields("scheduler reloaded", logger.Fields{"added": added, "removed": removed, "total": len(s.jobs)})
	}
	return nil
}

func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Spec 은 테넌트에 등록된 cron 식이다.
func (s *Scheduler) Spec(tenantID primitive.ObjectID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[tenantID]
	return j.spec, ok
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) runTenant(tenantID primitive.ObjectID) {
	start := time.Now()
	res, err := s.runner.RunTenant(s.context(), tenantID, false)
	fields := logger.Fields{"owner_id": tenantID.Hex(), "duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorWithFields("scheduled generation failed", fields)
		return
	}
	if res != nil {
		fields["posts"] = len(res.Posts)
		fields["failures"] = len(res.Failures)
		logger.InfoWithFields("scheduled generation finished", fields)
	}
}

func (s *Scheduler) rebuildSitemaps() {
	rebuilt, failed, err := s.sitemaps.RebuildAll(s.context())
	if err != nil {
		logger.ErrorWithFields("sitemap rebuild run failed", logger.Fields{"error": err.Error()})
		return
	}
	logger.InfoWithFields("sitemaps rebuilt", logger.Fields{"rebuilt": rebuilt, "failed": failed})
}

func (s *Scheduler) reverifyDomains() {
	checked, verified, err := s.domains.ReverifyPending(s.context())
	if err != nil {
		logger.ErrorWithFields("domain reverification run failed", logger.Fields{"error": err.Error()})
		return
	}
	if checked > 0 {
		logger.InfoWithFields("domains reverified", logger.Fields{"checked": checked, "verified": verified})
	}
}

func (s *Scheduler) failStale() {
	n, err := s.histories.FailStale(s.context(), time.Now().Add(-staleAfter), "batch interrupted")
	if err != nil {
		logger.ErrorWithFields("stale history cleanup failed", logger.Fields{"error": err.Error()})
		return
	}
	if n > 0 {
		logger.WarnWithFields("stale generation histories closed", logger.Fields{"count": n})
	}
}
