package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DomainStatus 는 서브도메인/커스텀 도메인 검증 상태이다. SSLStatus 도 같은 값을 사용한다.
type DomainStatus string

const (
	DomainPending  DomainStatus = "pending"
	DomainActive   DomainStatus = "active"
	DomainFailed   DomainStatus = "failed"
	DomainInactive DomainStatus = "inactive"
)

// Frequency 는 테넌트별 자동 생성 주기이다.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// User 는 블로그 하나를 소유하는 테넌트 계정이다.
// Collection: users
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email                string             `bson:"email" json:"email"`
	Name                 string             `bson:"name" json:"name"`
	GithubID             string             `bson:"github_id" json:"github_id"`
	Avatar               string             `bson:"avatar" json:"avatar"`
	Role                 string             `bson:"role" json:"role"`
	IsActive             bool               `bson:"is_active" json:"is_active"`
	Subdomain            string             `bson:"subdomain,omitempty" json:"subdomain,omitempty"`
	CustomDomain         string             `bson:"custom_domain,omitempty" json:"custom_domain,omitempty"`
	DomainStatus         DomainStatus       `bson:"domain_status" json:"domain_status"`
	SSLStatus            DomainStatus       `bson:"ssl_status" json:"ssl_status"`
	DomainVerifiedAt     *time.Time         `bson:"domain_verified_at,omitempty" json:"domain_verified_at,omitempty"`
	DomainVerifyAttempts int                `bson:"domain_verify_attempts" json:"domain_verify_attempts"`
	DomainError          string             `bson:"domain_error,omitempty" json:"domain_error,omitempty"`
	Settings             UserSettings       `bson:"settings" json:"settings"`
	LastLoginAt          *time.Time         `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

type UserSettings struct {
	Blog    BlogSettings    `bson:"blog" json:"blog"`
	SEO     SEOSettings     `bson:"seo" json:"seo"`
	Content ContentSettings `bson:"content" json:"content"`
}

type BlogSettings struct {
	Title          string `bson:"title" json:"title"`
	Description    string `bson:"description" json:"description"`
	Language       string `bson:"language" json:"language"`
	PostsPerPage   int    `bson:"posts_per_page" json:"posts_per_page"`
	ShowAuthor     bool   `bson:"show_author" json:"show_author"`
	ShowCategories bool   `bson:"show_categories" json:"show_categories"`
	About          string `bson:"about" json:"about"`
}

type SEOSettings struct {
	MetaTitle       string   `bson:"meta_title" json:"meta_title"`
	MetaDescription string   `bson:"meta_description" json:"meta_description"`
	DefaultKeywords []string `bson:"default_keywords" json:"default_keywords"`
	UseSitemap      bool     `bson:"use_sitemap" json:"use_sitemap"`
}

// ContentSettings 의 0 값 필드는 시스템 기본값으로 대체된다.
type ContentSettings struct {
	AutoGenerate  bool      `bson:"auto_generate" json:"auto_generate"`
	Frequency     Frequency `bson:"frequency" json:"frequency"`
	CustomCron    string    `bson:"custom_cron,omitempty" json:"custom_cron,omitempty"`
	PostsPerBatch int       `bson:"posts_per_batch" json:"posts_per_batch"`
	MinWords      int       `bson:"min_words" json:"min_words"`
	MaxWords      int       `bson:"max_words" json:"max_words"`
	AutoPublish   bool      `bson:"auto_publish" json:"auto_publish"`
	Model         string    `bson:"model,omitempty" json:"model,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DefaultUserSettings 는 신규 가입 시 적용하는 설정이다.
func DefaultUserSettings(name string) UserSettings {
	title := "My Blog"
	if name != "" {
		title = name + "'s Blog"
	}
	return UserSettings{
		Blog: BlogSettings{
			Title:          title,
			Language:       "zh-CN",
			PostsPerPage:   10,
			ShowAuthor:     true,
			ShowCategories: true,
		},
		SEO: SEOSettings{UseSitemap: true},
		Content: ContentSettings{
			Frequency:     FrequencyDaily,
			PostsPerBatch: 1,
			MinWords:      800,
			MaxWords:      1500,
		},
	}
}
