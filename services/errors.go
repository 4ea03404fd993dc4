package services

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrTopicNotFound   = errors.New("topic not found")
	ErrTopicExists     = errors.New("topic with the same name already exists")
	ErrPostNotFound    = errors.New("post not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrHistoryNotFound = errors.New("generation history not found")
	ErrNoActiveTopics  = errors.New("no active topics")
	ErrBlogNotFound    = errors.New("blog not found")
	ErrDomainTaken     = errors.New("domain already in use")
	ErrBatchRunning    = errors.New("a generation batch is already running")
	ErrSlugExhausted   = errors.New("could not allocate a unique slug")
	ErrUserInactive    = errors.New("user is deactivated")
	ErrSitemapDisabled = errors.New("sitemap is disabled")
	// ErrDNSLookup 은 타임아웃 같은 DNS 인프라 오류다. 레코드가 틀린 경우는 검증 실패로 처리한다.
	ErrDNSLookup = errors.New("dns lookup failed")
)
