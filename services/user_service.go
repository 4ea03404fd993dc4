package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/logger"
	"autoblog/models"
	"autoblog/repositories"
)

// GithubProfile 은 OAuth 콜백에서 GitHub /user API 로 받은 정보다.
type GithubProfile struct {
	ID        string
	Login     string
	Name      string
	Email     string
	AvatarURL string
}

type UserService struct {
	users UserStore
	now   func() time.Time
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users, now: time.Now}
}

// LoginWithGithub 는 GitHub ID → 이메일 순으로 기존 계정을 찾고, 없으면 새로 만든다.
// 가입자가 한 명도 없을 때 만들어지는 계정은 admin 이 된다.
func (s *UserService) LoginWithGithub(ctx context.Context, p GithubProfile) (*models.User, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: github id is empty", ErrValidation)
	}
	now := s.now()

	u, err := s.users.FindByGithubID(ctx, p.ID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find user by github id: %w", err)
	}
	if u != nil {
		if !u.IsActive {
			return nil, ErrUserInactive
		}
		set := bson.M{"last_login_at": now}
		if p.AvatarURL != "" && p.AvatarURL != u.Avatar {
			set["avatar"] = p.AvatarURL
			u.Avatar = p.AvatarURL
		}
		if err := s.users.UpdateFields(ctx, u.ID, set); err != nil {
			return nil, fmt.Errorf("update last login: %w", err)
		}
		u.LastLoginAt = &now
		logger.InfoWithFields("github login", logger.Fields{"user_id": u.ID.Hex(), "github_id": p.ID})
		return u, nil
	}

	if p.Email != "" {
		u, err = s.users.FindByEmail(ctx, p.Email)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("find user by email: %w", err)
		}
		if u != nil {
			if !u.IsActive {
				return nil, ErrUserInactive
			}
			if err := s.users.UpdateFields(ctx, u.ID, bson.M{"github_id": p.ID, "last_login_at": now}); err != nil {
				return nil, fmt.Errorf("link github account: %w", err)
			}
			u.GithubID = p.ID
			u.LastLoginAt = &now
			logger.InfoWithFields("github account linked", logger.Fields{"user_id": u.ID.Hex(), "github_id": p.ID})
			return u, nil
		}
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	name := firstString(p.Name, p.Login, "github_"+p.ID)
	email := p.Email
	if email == "" {
		email = p.ID + "@github.user"
	}
	u = &models.User{
		Email:        strings.ToLower(email),
		Name:         name,
		GithubID:     p.ID,
		Avatar:       p.AvatarURL,
		Role:         models.RoleUser,
		IsActive:     true,
		DomainStatus: models.DomainPending,
		SSLStatus:    models.DomainPending,
		Settings:     models.DefaultUserSettings(name),
		LastLoginAt:  &now,
	}
	if total == 0 {
		u.Role = models.RoleAdmin
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.InfoWithFields("user created", logger.Fields{"user_id": u.ID.Hex(), "github_id": p.ID, "role": u.Role})
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateSettingsInput 의 nil 필드는 바꾸지 않는다. 역할, 도메인 같은 필드는 여기서 바꿀 수 없다.
type UpdateSettingsInput struct {
	Name            *string           `json:"name"`
	BlogTitle       *string           `json:"blog_title"`
	BlogDescription *string           `json:"blog_description"`
	Language        *string           `json:"language"`
	PostsPerPage    *int              `json:"posts_per_page"`
	ShowAuthor      *bool             `json:"show_author"`
	ShowCategories  *bool             `json:"show_categories"`
	About           *string           `json:"about"`
	MetaTitle       *string           `json:"meta_title"`
	MetaDescription *string           `json:"meta_description"`
	DefaultKeywords *[]string         `json:"default_keywords"`
	UseSitemap      *bool             `json:"use_sitemap"`
	AutoGenerate    *bool             `json:"auto_generate"`
	Frequency       *models.Frequency `json:"frequency"`
	CustomCron      *string           `json:"custom_cron"`
	PostsPerBatch   *int              `json:"posts_per_batch"`
	MinWords        *int              `json:"min_words"`
	MaxWords        *int              `json:"max_words"`
	AutoPublish     *bool             `json:"auto_publish"`
	Model           *string           `json:"model"`
}

func (s *UserService) UpdateSettings(ctx context.Context, id primitive.ObjectID, in UpdateSettingsInput) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := u.Settings
	b, seo, c := &st.Blog, &st.SEO, &st.Content

	setString(&b.Title, in.BlogTitle)
	setString(&b.Description, in.BlogDescription)
	setString(&b.Language, in.Language)
	setString(&b.About, in.About)
	setBool(&b.ShowAuthor, in.ShowAuthor)
	setBool(&b.ShowCategories, in.ShowCategories)
	if in.PostsPerPage != nil {
		if *in.PostsPerPage < 1 || *in.PostsPerPage > 100 {
			return nil, fmt.Errorf("%w: posts_per_page must be between 1 and 100", ErrValidation)
		}
		b.PostsPerPage = *in.PostsPerPage
	}

	setString(&seo.MetaTitle, in.MetaTitle)
	setString(&seo.MetaDescription, in.MetaDescription)
	setBool(&seo.UseSitemap, in.UseSitemap)
	if in.DefaultKeywords != nil {
		seo.DefaultKeywords = cleanList(*in.DefaultKeywords)
	}

	setBool(&c.AutoGenerate, in.AutoGenerate)
	setBool(&c.AutoPublish, in.AutoPublish)
	setString(&c.Model, in.Model)
	if in.Frequency != nil {
		c.Frequency = *in.Frequency
	}
	setString(&c.CustomCron, in.CustomCron)
	if in.PostsPerBatch != nil {
		if *in.PostsPerBatch < 1 || *in.PostsPerBatch > maxBatchSize {
			return nil, fmt.Errorf("%w: posts_per_batch must be between 1 and %d", ErrValidation, maxBatchSize)
		}
		c.PostsPerBatch = *in.PostsPerBatch
	}
	if in.MinWords != nil {
		c.MinWords = *in.MinWords
	}
	if in.MaxWords != nil {
		c.MaxWords = *in.MaxWords
	}
	if err := validateContentSettings(*c); err != nil {
		return nil, err
	}

	set := bson.M{"settings": st}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		set["name"] = name
		u.Name = name
	}
	if err := s.users.UpdateFields(ctx, id, set); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	u.Settings = st
	return u, nil
}

func validateContentSettings(c models.ContentSettings) error {
	switch c.Frequency {
	case models.FrequencyHourly, models.FrequencyDaily, models.FrequencyWeekly:
	case models.FrequencyCustom:
		if c.CustomCron == "" {
			return fmt.Errorf("%w: custom frequency requires custom_cron", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrValidation, c.Frequency)
	}
	if c.CustomCron != "" {
		if err := ValidateCron(c.CustomCron); err != nil {
			return err
		}
	}
	if c.MinWords > 0 && c.MaxWords > 0 && c.MinWords > c.MaxWords {
		return fmt.Errorf("%w: min_words must not exceed max_words", ErrValidation)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
