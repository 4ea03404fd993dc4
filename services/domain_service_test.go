package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblog/cache"
	"autoblog/config"
	"autoblog/events"
	"autoblog/models"
)

// stubResolver 는 호스트별로 정해진 CNAME 이나 에러를 돌려준다.
type stubResolver struct {
	cnames map[string]string
	errs   map[string]error
	calls  int
}

func (r *stubResolver) LookupCNAME(_ context.Context, host string) (string, error) {
	r.calls++
	if err, ok := r.errs[host]; ok {
		return "", err
	}
	if c, ok := r.cnames[host]; ok {
		return c, nil
	}
	return host + ".", nil
}

func newDomainFixture(env string, resolver *stubResolver) (*DomainService, *fakeUsers, *fakeEvents) {
	users := newFakeUsers()
	ev := &fakeEvents{}
	cfg := testAppConfig().Domain
	svc := NewDomainService(users, cfg, env,
		WithResolver(resolver),
		WithHostCache(cache.NewMemoryHostCache(time.Minute)),
		WithDomainEvents(ev),
	)
	return svc, users, ev
}

func customTenant(users *fakeUsers, domain string) *models.User {
	u := newTenant(nil)
	u.CustomDomain = domain
	u.DomainStatus = models.DomainPending
	return users.put(u)
}

func TestResolveUnknownSubdomainIsNotFound(t *testing.T) {
	svc, users, _ := newDomainFixture(config.EnvProduction, &stubResolver{})
	u := newTenant(nil)
	u.Subdomain = "bar"
	users.put(u)

	_, err := svc.Resolve(context.Background(), "foo.blogs.example.com")
	assert.ErrorIs(t, err, ErrBlogNotFound)

	got, err := svc.Resolve(context.Background(), "BAR.blogs.example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestResolvePlatformHosts(t *testing.T) {
	svc, _, _ := newDomainFixture(config.EnvProduction, &stubResolver{})
	for _, host := range []string{"blogs.example.com", "www.blogs.example.com", "localhost:3000", "127.0.0.1", ""} {
		u, err := svc.Resolve(context.Background(), host)
		assert.NoError(t, err, host)
		assert.Nil(t, u, host)
	}
}

func TestResolveSkipsInactiveAndUnverifiedTenants(t *testing.T) {
	svc, users, _ := newDomainFixture(config.EnvProduction, &stubResolver{})
	pending := customTenant(users, "pending.example.org")

	_, err := svc.Resolve(context.Background(), pending.CustomDomain)
	assert.ErrorIs(t, err, ErrBlogNotFound)

	off := newTenant(nil)
	off.Subdomain = "off"
	off.IsActive = false
	users.put(off)
	_, err = svc.Resolve(context.Background(), "off.blogs.example.com")
	assert.ErrorIs(t, err, ErrBlogNotFound)
}

func TestVerifyCustomDomainWrongTarget(t *testing.T) {
	resolver := &stubResolver{cnames: map[string]string{"blog.example.org": "some-other-host.com."}}
	svc, users, ev := newDomainFixture(config.EnvProduction, resolver)
	u := customTenant(users, "blog.example.org")

	res, err := svc.Verify(context.Background(), u.ID, true)
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Contains(t, res.Reason, "some-other-host.com")

	stored, _ := users.FindByID(context.Background(), u.ID)
	assert.Equal(t, models.DomainFailed, stored.DomainStatus)
	assert.Nil(t, stored.DomainVerifiedAt)
	assert.Equal(t, 1, stored.DomainVerifyAttempts)
	assert.NotEmpty(t, stored.DomainError)
	assert.Empty(t, ev.domains)
}

func TestVerifyCustomDomainSuccess(t *testing.T) {
	resolver := &stubResolver{cnames: map[string]string{"blog.example.org": "Edge.Blogs.Example.com."}}
	svc, users, ev := newDomainFixture(config.EnvProduction, resolver)
	u := customTenant(users, "blog.example.org")
	u.DomainVerifyAttempts = 2
	users.put(u)

	res, err := svc.Verify(context.Background(), u.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Verified)

	stored, _ := users.FindByID(context.Background(), u.ID)
	assert.Equal(t, models.DomainActive, stored.DomainStatus)
	assert.NotNil(t, stored.DomainVerifiedAt)
	assert.Equal(t, models.DomainPending, stored.SSLStatus)
	assert.Equal(t, 0, stored.DomainVerifyAttempts)
	require.Len(t, ev.domains, 1)
	assert.Equal(t, events.DomainVerified, ev.domains[0].Type)

	got, err := svc.Resolve(context.Background(), "blog.example.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestVerifyCustomDomainDNSFailures(t *testing.T) {
	t.Run("no cname record", func(t *testing.T) {
		svc, users, _ := newDomainFixture(config.EnvProduction, &stubResolver{})
		u := customTenant(users, "plain.example.org")

		res, err := svc.Verify(context.Background(), u.ID, true)
		require.NoError(t, err)
		assert.False(t, res.Verified)
		assert.Equal(t, "no CNAME record found", res.Reason)
	})

	t.Run("nxdomain", func(t *testing.T) {
		resolver := &stubResolver{errs: map[string]error{
			"gone.example.org": &net.DNSError{Err: "no such host", Name: "gone.example.org", IsNotFound: true},
		}}
		svc, users, _ := newDomainFixture(config.EnvProduction, resolver)
		u := customTenant(users, "gone.example.org")

		res, err := svc.Verify(context.Background(), u.ID, true)
		require.NoError(t, err)
		assert.False(t, res.Verified)
		assert.Contains(t, res.Reason, "no such host")
	})

	t.Run("timeout is an error", func(t *testing.T) {
		resolver := &stubResolver{errs: map[string]error{
			"slow.example.org": &net.DNSError{Err: "i/o timeout", Name: "slow.example.org", IsTimeout: true},
		}}
		svc, users, _ := newDomainFixture(config.EnvProduction, resolver)
		u := customTenant(users, "slow.example.org")

		_, err := svc.Verify(context.Background(), u.ID, true)
		require.ErrorIs(t, err, ErrDNSLookup)
		stored, _ := users.FindByID(context.Background(), u.ID)
		assert.Equal(t, models.DomainPending, stored.DomainStatus)
		assert.Equal(t, 0, stored.DomainVerifyAttempts)
	})

	t.Run("resolver failure is an error", func(t *testing.T) {
		resolver := &stubResolver{errs: map[string]error{"x.example.org": errors.New("boom")}}
		svc, users, _ := newDomainFixture(config.EnvProduction, resolver)
		u := customTenant(users, "x.example.org")

		_, err := svc.Verify(context.Background(), u.ID, true)
		assert.Error(t, err)
	})
}

func TestVerifyDevBypass(t *testing.T) {
	resolver := &stubResolver{}
	users := newFakeUsers()
	cfg := testAppConfig().Domain
	cfg.BaseDomain = "localhost"
	svc := NewDomainService(users, cfg, config.EnvDevelopment, WithResolver(resolver))
	u := customTenant(users, "my.blog.test")

	res, err := svc.Verify(context.Background(), u.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Zero(t, resolver.calls)

	stored, _ := users.FindByID(context.Background(), u.ID)
	assert.Equal(t, models.DomainActive, stored.SSLStatus)
	assert.Equal(t, "hosts", svc.Guide("my.blog.test", true).RecordType)
}

func TestSetDomainSubdomain(t *testing.T) {
	svc, users, ev := newDomainFixture(config.EnvProduction, &stubResolver{})
	u := newTenant(users)
	other := newTenant(nil)
	other.Subdomain = "taken"
	users.put(other)

	got, res, err := svc.SetDomain(context.Background(), u.ID, SetDomainInput{Subdomain: strPtr(" My-Blog ")})
	require.NoError(t, err)
	assert.Equal(t, "my-blog", got.Subdomain)
	assert.True(t, res.Verified)
	assert.Equal(t, models.DomainActive, got.DomainStatus)
	require.Len(t, ev.domains, 2)
	assert.Equal(t, events.DomainChanged, ev.domains[0].Type)
	assert.Contains(t, ev.domains[0].Hosts, "my-blog.blogs.example.com")

	for _, bad := range []string{"www", "-edge", "a_b", "has.dot", ""} {
		_, _, err := svc.SetDomain(context.Background(), u.ID, SetDomainInput{Subdomain: strPtr(bad)})
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
	_, _, err = svc.SetDomain(context.Background(), u.ID, SetDomainInput{Subdomain: strPtr("taken")})
	assert.ErrorIs(t, err, ErrDomainTaken)
}

func TestSetDomainCustomValidation(t *testing.T) {
	svc, users, _ := newDomainFixture(config.EnvProduction, &stubResolver{})
	u := newTenant(users)

	for _, bad := range []string{"foo.blogs.example.com", "10.0.0.1", "co.uk", "com", "a..b.com"} {
		_, _, err := svc.SetDomain(context.Background(), u.ID, SetDomainInput{CustomDomain: strPtr(bad)})
		assert.ErrorIs(t, err, ErrValidation, bad)
	}

	_, _, err := svc.SetDomain(context.Background(), u.ID, SetDomainInput{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetDomainCustomPendingThenCleared(t *testing.T) {
	svc, users, _ := newDomainFixture(config.EnvProduction, &stubResolver{})
	u := newTenant(users)

	got, res, err := svc.SetDomain(context.Background(), u.ID, SetDomainInput{CustomDomain: strPtr("https-less.Example.org.")})
	require.NoError(t, err)
	assert.Equal(t, "https-less.example.org", got.CustomDomain)
	assert.False(t, res.Verified)
	assert.Equal(t, models.DomainFailed, got.DomainStatus)
	assert.Nil(t, got.DomainVerifiedAt)

	got, res, err = svc.SetDomain(context.Background(), u.ID, SetDomainInput{CustomDomain: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, got.CustomDomain)
	assert.Equal(t, models.DomainActive, got.DomainStatus)
}

func TestReverifyPending(t *testing.T) {
	resolver := &stubResolver{cnames: map[string]string{"ok.example.org": "edge.blogs.example.com."}}
	users := newFakeUsers()
	cfg := testAppConfig().Domain

	disabled := NewDomainService(users, cfg, config.EnvProduction, WithResolver(resolver))
	customTenant(users, "ok.example.org")
	customTenant(users, "bad.example.org")
	exhausted := customTenant(users, "old.example.org")
	exhausted.DomainVerifyAttempts = cfg.MaxVerificationRetries
	users.put(exhausted)

	checked, verified, err := disabled.ReverifyPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, checked)
	assert.Zero(t, verified)

	cfg.ReverifyEnabled = true
	enabled := NewDomainService(users, cfg, config.EnvProduction, WithResolver(resolver))
	checked, verified, err = enabled.ReverifyPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	assert.Equal(t, 1, verified)
}

func TestDomainStatusAndGuide(t *testing.T) {
	svc, users, _ := newDomainFixture(config.EnvProduction, &stubResolver{})
	u := customTenant(users, "blog.example.org")

	v, err := svc.Status(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DomainPending, v.Status)
	assert.Equal(t, "CNAME", v.Guide.RecordType)
	assert.Equal(t, "edge.blogs.example.com", v.Guide.Value)

	sub := svc.Guide("me", false)
	assert.Equal(t, "me.blogs.example.com", sub.FullDomain)
}

func TestSubdomainPattern(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a", true},
		{"ab", false},
		{"abc", true},
		{"my-blog", true},
		{"-ab", false},
		{"ab-", false},
		{"a" + strings.Repeat("b", 62), true},
		{"a" + strings.Repeat("b", 63), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, subdomainPattern.MatchString(tc.in), tc.in)
	}
}
