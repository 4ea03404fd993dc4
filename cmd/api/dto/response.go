package dto

import "autoblog/models"

// ErrorResponseDTO는 공통 에러 응답 형식을 통일하기 위한 DTO이다.
type ErrorResponseDTO struct {
	Error string `json:"error" example:"topic not found"`
}

// MessageResponseDTO는 단순 메시지 응답 형식을 통일하기 위한 DTO이다.
type MessageResponseDTO struct {
	Message string `json:"message" example:"sitemap rebuilt"`
}

// GenerateRequestDTO 의 count 가 0 이면 테넌트 설정의 배치 크기를 쓴다.
// publish_immediately 가 없으면 테넌트의 auto_publish 를 따른다.
type GenerateRequestDTO struct {
	Count              int   `json:"count" binding:"min=0" example:"3"`
	PublishImmediately *bool `json:"publish_immediately" example:"true"`
}

type GenerateTopicRequestDTO struct {
	PublishImmediately *bool `json:"publish_immediately"`
}

type TopicGenerationResponseDTO struct {
	Post    *models.Post              `json:"post"`
	History *models.GenerationHistory `json:"history"`
}

type ChangeRoleRequestDTO struct {
	Role string `json:"role" binding:"required" example:"admin"`
}

type VerifyDomainRequestDTO struct {
	Custom bool `json:"custom"`
}

type SitemapResponseDTO struct {
	Message  string `json:"message" example:"sitemap rebuilt"`
	URLCount int    `json:"url_count" example:"12"`
	Hostname string `json:"hostname" example:"https://alice.bertyblog.link"`
}
