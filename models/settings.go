package models

import "time"

// SystemSettings 는 관리자가 런타임에 바꾸는 전역 생성 설정이다.
// 0 값 필드는 config.yaml 의 기본값을 그대로 사용한다.
// Collection: settings (단일 문서, _id = "system")
type SystemSettings struct {
	ID             string    `bson:"_id" json:"-"`
	Model          string    `bson:"model" json:"model"`
	PostsPerBatch  int       `bson:"posts_per_batch" json:"posts_per_batch"`
	MinWords       int       `bson:"min_words" json:"min_words"`
	MaxWords       int       `bson:"max_words" json:"max_words"`
	DefaultCron    string    `bson:"default_cron" json:"default_cron"`
	SitemapEnabled *bool     `bson:"sitemap_enabled,omitempty" json:"sitemap_enabled,omitempty"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

const SystemSettingsID = "system"
