package quota

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"autoblog/config"
)

// Limiter 는 LLM 호출에 대한 분당/일일 한도를 관리한다.
// 인메모리로 동작하므로 프로세스마다 카운터가 따로 있고 재시작하면 초기화된다.
type Limiter struct {
	mu sync.Mutex

	dailyLimit int
	usedToday  int
	dayKey     string

	pace *rate.Limiter
	now  func() time.Time
}

// NewLimiterFromConfig 는 llm_quota 설정으로 Limiter 를 만든다. 0 이하 값은 제한 없음이다.
func NewLimiterFromConfig(cfg config.LLMQuotaConfig) *Limiter {
	return NewLimiter(cfg.RequestsPerMinute, cfg.RequestsPerDay)
}

func NewLimiter(perMinute, perDay int) *Limiter {
	if perDay < 0 {
		perDay = 0
	}
	var pace *rate.Limiter
	if perMinute > 0 {
		pace = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return &Limiter{
		dailyLimit: perDay,
		pace:       pace,
		now:        time.Now,
	}
}

// WaitAndReserve 는 LLM 호출 직전에 한도를 적용한다.
//   - 일일 한도 소진: (false, nil). 호출자는 이번 호출을 건너뛴다.
//   - 컨텍스트 취소: (false, ctx.Err()).
func (l *Limiter) WaitAndReserve(ctx context.Context) (bool, error) {
	if l == nil {
		return true, nil
	}

	l.mu.Lock()
	todayKey := l.now().UTC().Format("2006-01-02")
	if l.dayKey != todayKey {
		l.dayKey = todayKey
		l.usedToday = 0
	}
	if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
		l.mu.Unlock()
		return false, nil
	}
	l.usedToday++
	l.mu.Unlock()

	if l.pace == nil {
		return true, nil
	}
	if err := l.pace.Wait(ctx); err != nil {
		l.release()
		return false, err
	}
	return true, nil
}

// release 는 대기 중 취소된 예약을 되돌린다.
func (l *Limiter) release() {
	l.mu.Lock()
	if l.usedToday > 0 {
		l.usedToday--
	}
	l.mu.Unlock()
}

// Remaining 은 오늘 남은 호출 수를 반환한다. 일일 한도가 없으면 -1 이다.
func (l *Limiter) Remaining() int {
	if l == nil || l.dailyLimit <= 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dayKey != l.now().UTC().Format("2006-01-02") {
		return l.dailyLimit
	}
	return l.dailyLimit - l.usedToday
}
