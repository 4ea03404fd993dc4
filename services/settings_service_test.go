package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblog/models"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestSettingsSystemFallsBackToConfig(t *testing.T) {
	svc := NewSettingsService(&fakeSettings{}, testAppConfig())

	eff, err := svc.System(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EffectiveSettings{
		Model:          "gpt-4o-mini",
		PostsPerBatch:  2,
		MinWords:       800,
		MaxWords:       1500,
		DefaultCron:    "0 3 * * *",
		SitemapEnabled: true,
	}, eff)
}

func TestSettingsUpdate(t *testing.T) {
	store := &fakeSettings{}
	svc := NewSettingsService(store, testAppConfig())
	ctx := context.Background()

	eff, err := svc.Update(ctx, UpdateSystemSettingsInput{
		PostsPerBatch:  intPtr(5),
		DefaultCron:    strPtr("@hourly"),
		SitemapEnabled: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, eff.PostsPerBatch)
	assert.Equal(t, "@hourly", eff.DefaultCron)
	assert.False(t, eff.SitemapEnabled)
	assert.False(t, store.s.UpdatedAt.IsZero())

	again, err := svc.System(ctx)
	require.NoError(t, err)
	assert.Equal(t, eff, again)
}

func TestSettingsUpdateValidation(t *testing.T) {
	svc := NewSettingsService(&fakeSettings{}, testAppConfig())
	ctx := context.Background()

	cases := map[string]UpdateSystemSettingsInput{
		"batch too small": {PostsPerBatch: intPtr(0)},
		"batch too large": {PostsPerBatch: intPtr(maxBatchSize + 1)},
		"bad cron":        {DefaultCron: strPtr("every day")},
		"inverted words":  {MinWords: intPtr(2000), MaxWords: intPtr(1000)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSettingsResolvePrefersTenant(t *testing.T) {
	svc := NewSettingsService(&fakeSettings{}, testAppConfig())
	u := &models.User{Settings: models.DefaultUserSettings("x")}
	u.Settings.Content.PostsPerBatch = 0
	u.Settings.Content.MinWords = 1200
	u.Settings.Content.MaxWords = 600
	u.Settings.Content.Model = "claude-3-5-haiku"
	u.Settings.Content.AutoPublish = true

	rs, err := svc.Resolve(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.PostsPerBatch)
	assert.Equal(t, 600, rs.Generator.MinWords)
	assert.Equal(t, 1200, rs.Generator.MaxWords)
	assert.Equal(t, "claude-3-5-haiku", rs.Generator.Model)
	assert.Equal(t, "zh-CN", rs.Generator.Language)
	assert.EqualValues(t, 4000, rs.Generator.MaxTokens)
	assert.True(t, rs.AutoPublish)
}

func TestSitemapEnabledNeedsBothSwitches(t *testing.T) {
	store := &fakeSettings{}
	svc := NewSettingsService(store, testAppConfig())
	u := &models.User{Settings: models.DefaultUserSettings("x")}

	assert.True(t, svc.SitemapEnabled(context.Background(), u))

	u.Settings.SEO.UseSitemap = false
	assert.False(t, svc.SitemapEnabled(context.Background(), u))

	u.Settings.SEO.UseSitemap = true
	off := false
	store.s.SitemapEnabled = &off
	assert.False(t, svc.SitemapEnabled(context.Background(), u))
}

func TestValidateCron(t *testing.T) {
	for _, expr := range []string{"0 3 * * *", "*/15 * * * *", "0 3 * * 1", "@daily"} {
		assert.NoError(t, ValidateCron(expr), expr)
	}
	for _, expr := range []string{"", "0 3 * *", "61 * * * *", "0 0 3 * * *"} {
		assert.ErrorIs(t, ValidateCron(expr), ErrValidation, expr)
	}
}
