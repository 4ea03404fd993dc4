package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"autoblog/logger"
)

// 컨텍스트에 저장되는 키 타입은 외부에서 직접 사용하지 못하게 unexported로 둔다.
type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// GenerateID는 트레이싱에 사용할 랜덤 ID를 생성한다.
func GenerateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithRequestID는 Request ID를 컨텍스트에 저장한 새 컨텍스트를 반환한다.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext는 컨텍스트에서 Request ID를 조회한다.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// Fields 는 로그 필드에 request_id 를 덧붙인다. fields 가 nil 이면 새로 만든다.
func Fields(ctx context.Context, fields logger.Fields) logger.Fields {
	if fields == nil {
		fields = logger.Fields{}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields["request_id"] = id
	}
	return fields
}
