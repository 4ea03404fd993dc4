package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/logger"
	"autoblog/models"
	"autoblog/repositories"
)

// TopicService 는 테넌트 범위의 주제 CRUD 를 담당한다.
type TopicService struct {
	topics TopicStore
	posts  PostStore
}

func NewTopicService(topics TopicStore, posts PostStore) *TopicService {
	return &TopicService{topics: topics, posts: posts}
}

type CreateTopicInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords"`
	Categories     []string `json:"categories"`
	Priority       int      `json:"priority"`
	Status         string   `json:"status"`
	PromptTemplate string   `json:"prompt_template"`
	FeedURL        string   `json:"feed_url"`
	ReferenceURLs  []string `json:"reference_urls"`
}

type UpdateTopicInput struct {
	Name           *string   `json:"name"`
	Description    *string   `json:"description"`
	Keywords       *[]string `json:"keywords"`
	Categories     *[]string `json:"categories"`
	Priority       *int      `json:"priority"`
	Status         *string   `json:"status"`
	PromptTemplate *string   `json:"prompt_template"`
	FeedURL        *string   `json:"feed_url"`
	ReferenceURLs  *[]string `json:"reference_urls"`
}

func (s *TopicService) Create(ctx context.Context, ownerID primitive.ObjectID, in CreateTopicInput) (*models.Topic, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: topic name is required", ErrValidation)
	}
	status, err := parseTopicStatus(in.Status)
	if err != nil {
		return nil, err
	}
	t := &models.Topic{
		OwnerID:        ownerID,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		Keywords:       cleanList(in.Keywords),
		Categories:     cleanList(in.Categories),
		Priority:       in.Priority,
		Status:         status,
		PromptTemplate: in.PromptTemplate,
		FeedURL:        strings.TrimSpace(in.FeedURL),
		ReferenceURLs:  cleanList(in.ReferenceURLs),
	}
	if err := s.topics.Insert(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrTopicExists
		}
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	logger.InfoWithFields("topic created", logger.Fields{"owner_id": ownerID.Hex(), "topic_id": t.ID.Hex(), "name": t.Name})
	return t, nil
}

func (s *TopicService) Get(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Topic, error) {
	t, err := s.topics.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TopicService) List(ctx context.Context, q repositories.TopicQuery) ([]models.Topic, int64, error) {
	if q.Status != "" {
		if _, err := parseTopicStatus(string(q.Status)); err != nil {
			return nil, 0, err
		}
	}
	return s.topics.List(ctx, q)
}

func (s *TopicService) Update(ctx context.Context, ownerID, id primitive.ObjectID, in UpdateTopicInput) (*models.Topic, error) {
	set := bson.M{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: topic name is required", ErrValidation)
		}
		set["name"] = name
	}
	if in.Description != nil {
		set["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Keywords != nil {
		set["keywords"] = cleanList(*in.Keywords)
	}
	if in.Categories != nil {
		set["categories"] = cleanList(*in.Categories)
	}
	if in.Priority != nil {
		set["priority"] = *in.Priority
	}
	if in.Status != nil {
		status, err := parseTopicStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		set["status"] = status
	}
	if in.PromptTemplate != nil {
		set["prompt_template"] = *in.PromptTemplate
	}
	if in.FeedURL != nil {
		set["feed_url"] = strings.TrimSpace(*in.FeedURL)
	}
	if in.ReferenceURLs != nil {
		set["reference_urls"] = cleanList(*in.ReferenceURLs)
	}

	t, err := s.topics.UpdateFields(ctx, ownerID, id, set)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, ErrTopicNotFound
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, ErrTopicExists
	case err != nil:
		return nil, fmt.Errorf("update topic: %w", err)
	}
	return t, nil
}

// Delete 는 주제를 지우고 그 주제로 생성된 글의 topic_id 를 비운다.
func (s *TopicService) Delete(ctx context.Context, ownerID, id primitive.ObjectID) error {
	if err := s.topics.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTopicNotFound
		}
		return fmt.Errorf("delete topic: %w", err)
	}
	n, err := s.posts.UnsetTopic(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("detach posts from topic: %w", err)
	}
	logger.InfoWithFields("topic deleted", logger.Fields{"owner_id": ownerID.Hex(), "topic_id": id.Hex(), "detached_posts": n})
	return nil
}

func parseTopicStatus(s string) (models.TopicStatus, error) {
	switch models.TopicStatus(s) {
	case "":
		return models.TopicActive, nil
	case models.TopicActive, models.TopicInactive:
		return models.TopicStatus(s), nil
	}
	return "", fmt.Errorf("%w: unknown topic status %q", ErrValidation, s)
}

// cleanList 는 앞뒤 공백을 자르고 빈 값과 중복을 제거한다.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
