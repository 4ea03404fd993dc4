package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/net/publicsuffix"

	"autoblog/cache"
	"autoblog/config"
	"autoblog/events"
	"autoblog/logger"
	"autoblog/metrics"
	"autoblog/models"
	"autoblog/repositories"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])?$`)

var reservedSubdomains = map[string]struct{}{
	"www": {}, "api": {}, "admin": {}, "app": {}, "mail": {}, "static": {},
}

// CNAMEResolver 는 *net.Resolver 가 구현한다.
type CNAMEResolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// DomainService 는 요청 호스트를 테넌트로 매핑하고 도메인 소유를 검증한다.
type DomainService struct {
	users    UserStore
	cfg      config.DomainConfig
	env      string
	resolver CNAMEResolver
	cache    cache.HostCache
	events   EventPublisher
	metrics  *metrics.Collector
	now      func() time.Time
}

type DomainOption func(*DomainService)

func WithResolver(r CNAMEResolver) DomainOption           { return func(s *DomainService) { s.resolver = r } }
func WithHostCache(c cache.HostCache) DomainOption        { return func(s *DomainService) { s.cache = c } }
func WithDomainEvents(p EventPublisher) DomainOption      { return func(s *DomainService) { s.events = p } }
func WithDomainMetrics(c *metrics.Collector) DomainOption { return func(s *DomainService) { s.metrics = c } }

func NewDomainService(users UserStore, cfg config.DomainConfig, env string, opts ...DomainOption) *DomainService {
	s := &DomainService{
		users:    users,
		cfg:      cfg,
		env:      env,
		resolver: net.DefaultResolver,
		now:      time.Now,
	}
	s.cfg.BaseDomain = strings.ToLower(strings.TrimSpace(cfg.BaseDomain))
	if s.cfg.LookupTimeout <= 0 {
		s.cfg.LookupTimeout = 5 * time.Second
	}
	if s.cfg.MaxVerificationRetries <= 0 {
		s.cfg.MaxVerificationRetries = 5
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// devBypass 는 로컬 개발 환경에서 DNS 검증을 생략한다.
func (s *DomainService) devBypass() bool {
	return s.env == config.EnvDevelopment && (s.cfg.BaseDomain == "localhost" || s.cfg.DNSProvider == "local")
}

// NormalizeHost 는 포트와 끝의 점을 제거하고 소문자로 바꾼다.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// IsPlatformHost 는 테넌트 해석을 하지 않는 호스트(기본 도메인, 로컬)인지 확인한다.
func (s *DomainService) IsPlatformHost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1", s.cfg.BaseDomain:
		return true
	}
	return s.cfg.BaseDomain != "" && host == "www."+s.cfg.BaseDomain
}

// Resolve 는 호스트에 해당하는 테넌트를 반환한다. 플랫폼 호스트면 (nil, nil),
// 일치하는 활성 테넌트가 없으면 ErrBlogNotFound 다.
func (s *DomainService) Resolve(ctx context.Context, rawHost string) (*models.User, error) {
	host := NormalizeHost(rawHost)
	if s.IsPlatformHost(host) {
		return nil, nil
	}

	if s.cache != nil {
		id, ok, err := s.cache.Get(ctx, host)
		if err != nil {
			logger.Log.Warnf("host cache get %s: %v", host, err)
		}
		if ok {
			u, err := s.users.FindByID(ctx, id)
			if err == nil && servable(u) {
				s.metrics.ResolverLookup("cache", true)
				return u, nil
			}
			_ = s.cache.Invalidate(ctx, host)
		}
	}

	var (
		u   *models.User
		err error
	)
	if sub, ok := s.subdomainOf(host); ok {
		u, err = s.users.FindBySubdomain(ctx, sub)
	} else {
		u, err = s.users.FindByCustomDomain(ctx, host)
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("resolve host %s: %w", host, err)
	}
	if u == nil || !servable(u) {
		s.metrics.ResolverLookup("store", false)
		logger.DebugWithFields("no tenant for host", logger.Fields{"host": host})
		return nil, ErrBlogNotFound
	}
	s.metrics.ResolverLookup("store", true)
	if s.cache != nil {
		if err := s.cache.Set(ctx, host, u.ID); err != nil {
			logger.Log.Warnf("host cache set %s: %v", host, err)
		}
	}
	return u, nil
}

func servable(u *models.User) bool {
	return u != nil && u.IsActive && u.DomainStatus == models.DomainActive
}

func (s *DomainService) subdomainOf(host string) (string, bool) {
	if s.cfg.BaseDomain == "" {
		return "", false
	}
	suffix := "." + s.cfg.BaseDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	return strings.TrimSuffix(host, suffix), true
}

// Hosts 는 테넌트에 연결된 모든 호스트 이름이다.
func (s *DomainService) Hosts(u *models.User) []string {
	var hosts []string
	if u.Subdomain != "" && s.cfg.BaseDomain != "" {
		hosts = append(hosts, u.Subdomain+"."+s.cfg.BaseDomain)
	}
	if u.CustomDomain != "" {
		hosts = append(hosts, u.CustomDomain)
	}
	return hosts
}

// PrimaryHost 는 sitemap 과 피드의 절대 URL 에 쓰는 호스트다. 검증된 커스텀 도메인을 우선한다.
func (s *DomainService) PrimaryHost(u *models.User) string {
	if u.CustomDomain != "" && u.DomainStatus == models.DomainActive {
		return u.CustomDomain
	}
	if u.Subdomain != "" && s.cfg.BaseDomain != "" {
		return u.Subdomain + "." + s.cfg.BaseDomain
	}
	return s.cfg.BaseDomain
}

// VerifyResult 는 검증 한 번의 결과다. Verified 가 false 면 Reason 에 사유가 있다.
type VerifyResult struct {
	Domain   string `json:"domain"`
	Custom   bool   `json:"custom"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

// Verify 는 서브도메인이면 형식만, 커스텀 도메인이면 CNAME 이 플랫폼 대상 호스트를 가리키는지 확인한다.
// DNS 불일치나 레코드 없음은 (Verified=false, nil) 이고, 타임아웃이나 저장 실패는 에러다.
func (s *DomainService) Verify(ctx context.Context, userID primitive.ObjectID, custom bool) (*VerifyResult, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	domain := u.Subdomain
	kind := "subdomain"
	if custom {
		domain = u.CustomDomain
		kind = "custom"
	}
	if domain == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrValidation, kind)
	}

	res := &VerifyResult{Domain: domain, Custom: custom}
	switch {
	case s.devBypass():
		res.Verified = true
	case custom:
		ok, reason, err := s.checkCNAME(ctx, domain)
		if err != nil {
			return nil, err
		}
		res.Verified, res.Reason = ok, reason
	default:
		if subdomainPattern.MatchString(domain) {
			res.Verified = true
		} else {
			res.Reason = "invalid subdomain format"
		}
	}
	s.metrics.Verification(kind, res.Verified)

	if !res.Verified {
		if err := s.users.IncrementVerifyAttempts(ctx, u.ID, models.DomainFailed, res.Reason); err != nil {
			return nil, fmt.Errorf("record verification failure: %w", err)
		}
		logger.WarnWithFields("domain verification failed", logger.Fields{"user_id": u.ID.Hex(), "domain": domain, "reason": res.Reason})
		return res, nil
	}

	ssl := models.DomainPending
	if s.devBypass() {
		ssl = models.DomainActive
	}
	err = s.users.UpdateFields(ctx, u.ID, bson.M{
		"domain_status":          models.DomainActive,
		"domain_verified_at":     s.now(),
		"ssl_status":             ssl,
		"domain_error":           "",
		"domain_verify_attempts": 0,
	})
	if err != nil {
		return nil, fmt.Errorf("record verification: %w", err)
	}
	logger.InfoWithFields("domain verified", logger.Fields{"user_id": u.ID.Hex(), "domain": domain})
	s.announce(ctx, events.DomainVerified, u.ID, s.Hosts(u), models.DomainActive)
	return res, nil
}

func (s *DomainService) checkCNAME(ctx context.Context, domain string) (bool, string, error) {
	target := strings.TrimSuffix(strings.ToLower(s.cfg.CNAMETarget), ".")
	if target == "" {
		return false, "", errors.New("domain.cname_target is not configured")
	}
	lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	cname, err := s.resolver.LookupCNAME(lctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
			return false, fmt.Sprintf("DNS lookup failed: %s", dnsErr.Err), nil
		}
		return false, "", fmt.Errorf("%w: cname for %s: %w", ErrDNSLookup, domain, err)
	}
	cname = strings.TrimSuffix(strings.ToLower(cname), ".")
	// CNAME 이 없으면 Go resolver 는 질의한 이름을 그대로 돌려준다.
	if cname == "" || cname == domain {
		return false, "no CNAME record found", nil
	}
	if !strings.Contains(cname, target) {
		return false, fmt.Sprintf("CNAME points to %s, expected %s", cname, target), nil
	}
	return true, "", nil
}

// SetDomainInput 의 nil 필드는 바꾸지 않는다. CustomDomain 이 빈 문자열이면 커스텀 도메인을 해제한다.
type SetDomainInput struct {
	Subdomain    *string `json:"subdomain"`
	CustomDomain *string `json:"custom_domain"`
}

// SetDomain 은 도메인을 pending 으로 바꾸고 바로 한 번 검증한다.
func (s *DomainService) SetDomain(ctx context.Context, userID primitive.ObjectID, in SetDomainInput) (*models.User, *VerifyResult, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	oldHosts := s.Hosts(u)

	set := bson.M{}
	if in.Subdomain != nil {
		sub := strings.ToLower(strings.TrimSpace(*in.Subdomain))
		if err := s.validateSubdomain(ctx, u.ID, sub); err != nil {
			return nil, nil, err
		}
		set["subdomain"] = sub
		u.Subdomain = sub
	}

	clearCustom := false
	if in.CustomDomain != nil {
		domain := NormalizeHost(*in.CustomDomain)
		if domain == "" {
			clearCustom = u.CustomDomain != ""
			u.CustomDomain = ""
		} else {
			if err := s.validateCustomDomain(ctx, u.ID, domain); err != nil {
				return nil, nil, err
			}
			set["custom_domain"] = domain
			u.CustomDomain = domain
		}
	}
	if len(set) == 0 && !clearCustom {
		return nil, nil, fmt.Errorf("%w: nothing to change", ErrValidation)
	}

	if clearCustom {
		if err := s.users.ClearCustomDomain(ctx, u.ID); err != nil {
			return nil, nil, fmt.Errorf("clear custom domain: %w", err)
		}
	}
	if len(set) > 0 {
		set["domain_status"] = models.DomainPending
		set["ssl_status"] = models.DomainInactive
		set["domain_verified_at"] = nil
		set["domain_verify_attempts"] = 0
		set["domain_error"] = ""
		if err := s.users.UpdateFields(ctx, u.ID, set); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return nil, nil, ErrDomainTaken
			}
			return nil, nil, fmt.Errorf("update domain: %w", err)
		}
	}

	changed := append(oldHosts, s.Hosts(u)...)
	s.announce(ctx, events.DomainChanged, u.ID, changed, models.DomainPending)

	var res *VerifyResult
	if len(set) > 0 {
		res, err = s.Verify(ctx, u.ID, u.CustomDomain != "")
		if err != nil {
			return nil, nil, err
		}
	}
	u, err = s.users.FindByID(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, res, nil
}

func (s *DomainService) validateSubdomain(ctx context.Context, userID primitive.ObjectID, sub string) error {
	if !subdomainPattern.MatchString(sub) {
		return fmt.Errorf("%w: subdomain may only contain lowercase letters, digits and inner hyphens", ErrValidation)
	}
	if _, ok := reservedSubdomains[sub]; ok {
		return fmt.Errorf("%w: subdomain %q is reserved", ErrValidation, sub)
	}
	other, err := s.users.FindBySubdomain(ctx, sub)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if other != nil && other.ID != userID {
		return ErrDomainTaken
	}
	return nil
}

// validateCustomDomain 은 공개 접미사(public suffix) 아래의 등록 가능한 이름인지 확인한다.
func (s *DomainService) validateCustomDomain(ctx context.Context, userID primitive.ObjectID, domain string) error {
	if s.cfg.BaseDomain != "" && (domain == s.cfg.BaseDomain || strings.HasSuffix(domain, "."+s.cfg.BaseDomain)) {
		return fmt.Errorf("%w: use the subdomain setting for %s", ErrValidation, s.cfg.BaseDomain)
	}
	if net.ParseIP(domain) != nil {
		return fmt.Errorf("%w: ip addresses are not allowed", ErrValidation)
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("%w: invalid domain %q", ErrValidation, domain)
		}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return fmt.Errorf("%w: %s is not a registrable domain", ErrValidation, domain)
	}
	other, err := s.users.FindByCustomDomain(ctx, domain)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if other != nil && other.ID != userID {
		return ErrDomainTaken
	}
	return nil
}

// announce 는 로컬 호스트 캐시를 지우고 다른 프로세스를 위해 이벤트를 발행한다.
func (s *DomainService) announce(ctx context.Context, t events.EventType, ownerID primitive.ObjectID, hosts []string, status models.DomainStatus) {
	if s.cache != nil && len(hosts) > 0 {
		if err := s.cache.Invalidate(ctx, hosts...); err != nil {
			logger.Log.Warnf("invalidate host cache: %v", err)
		}
	}
	if s.events == nil {
		return
	}
	if err := s.events.PublishDomain(ctx, t, ownerID, hosts, string(status)); err != nil {
		logger.WarnWithFields("publish domain event failed", logger.Fields{"owner_id": ownerID.Hex(), "error": err.Error()})
	}
}

// DNSGuide 는 사용자에게 보여줄 DNS 설정 안내다.
type DNSGuide struct {
	RecordType   string   `json:"record_type,omitempty"`
	Host         string   `json:"host,omitempty"`
	Value        string   `json:"value,omitempty"`
	TTL          string   `json:"ttl,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	Message      string   `json:"message,omitempty"`
	FullDomain   string   `json:"full_domain,omitempty"`
}

func (s *DomainService) Guide(domain string, custom bool) DNSGuide {
	if !custom {
		return DNSGuide{
			Message:    "Subdomains need no DNS configuration.",
			FullDomain: domain + "." + s.cfg.BaseDomain,
		}
	}
	if s.devBypass() {
		return DNSGuide{
			RecordType: "hosts",
			Host:       domain,
			Value:      "127.0.0.1",
			TTL:        "N/A",
			Instructions: []string{
				"Local mode: edit your hosts file",
				fmt.Sprintf("Add \"127.0.0.1 %s\"", domain),
				"Save the file and click verify",
			},
		}
	}
	return DNSGuide{
		RecordType: "CNAME",
		Host:       domain,
		Value:      s.cfg.CNAMETarget,
		TTL:        "3600",
		Instructions: []string{
			"Open your DNS provider's control panel",
			fmt.Sprintf("Add a CNAME record for %s", domain),
			fmt.Sprintf("Set the record value to %s", s.cfg.CNAMETarget),
			"Wait for DNS propagation, then click verify",
		},
	}
}

type DomainStatusView struct {
	Subdomain    string              `json:"subdomain,omitempty"`
	CustomDomain string              `json:"custom_domain,omitempty"`
	Hosts        []string            `json:"hosts"`
	Status       models.DomainStatus `json:"status"`
	SSLStatus    models.DomainStatus `json:"ssl_status"`
	VerifiedAt   *time.Time          `json:"verified_at,omitempty"`
	Attempts     int                 `json:"attempts"`
	Error        string              `json:"error,omitempty"`
	Guide        DNSGuide            `json:"guide"`
}

func (s *DomainService) Status(ctx context.Context, userID primitive.ObjectID) (*DomainStatusView, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	v := &DomainStatusView{
		Subdomain:    u.Subdomain,
		CustomDomain: u.CustomDomain,
		Hosts:        s.Hosts(u),
		Status:       u.DomainStatus,
		SSLStatus:    u.SSLStatus,
		VerifiedAt:   u.DomainVerifiedAt,
		Attempts:     u.DomainVerifyAttempts,
		Error:        u.DomainError,
	}
	if u.CustomDomain != "" {
		v.Guide = s.Guide(u.CustomDomain, true)
	} else {
		v.Guide = s.Guide(u.Subdomain, false)
	}
	return v, nil
}

// ReverifyPending 은 pending/failed 상태의 커스텀 도메인을 다시 검증한다.
// domain.reverify_enabled 가 꺼져 있으면 아무것도 하지 않는다.
func (s *DomainService) ReverifyPending(ctx context.Context) (checked, verified int, err error) {
	if !s.cfg.ReverifyEnabled {
		return 0, 0, nil
	}
	users, err := s.users.ListPendingDomains(ctx, s.cfg.MaxVerificationRetries)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending domains: %w", err)
	}
	for _, u := range users {
		if ctx.Err() != nil {
			return checked, verified, ctx.Err()
		}
		checked++
		res, err := s.Verify(ctx, u.ID, true)
		if err != nil {
			logger.ErrorWithFields("domain reverification error", logger.Fields{"user_id": u.ID.Hex(), "error": err.Error()})
			continue
		}
		if res.Verified {
			verified++
		}
	}
	return checked, verified, nil
}
