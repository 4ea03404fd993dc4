package generator

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var slugShape = regexp.MustCompile(`^[a-z0-9-]+-\d{6}[0-9a-z]{3}$`)

func TestSluggerMake(t *testing.T) {
	s := &Slugger{
		now:  func() time.Time { return time.UnixMilli(1_700_000_123_456) },
		rand: func(n int) int { return 10 },
	}
	assert.Equal(t, "hello-world-123456aaa", s.Make("Hello, World!"))
}

func TestSluggerShape(t *testing.T) {
	s := NewSlugger()
	for _, title := range []string{"Go Concurrency Patterns", "并发编程入门指南", "!!", ""} {
		got := s.Make(title)
		assert.Regexp(t, slugShape, got, title)
	}
}

func TestBase(t *testing.T) {
	assert.Equal(t, "post", Base("!!"))
	assert.Equal(t, "post", Base("a"))

	long := Base(strings.Repeat("word ", 20))
	assert.LessOrEqual(t, len(long), slugBaseMax)
	assert.False(t, strings.HasSuffix(long, "-"))

	cjk := Base(strings.Repeat("并发编程", 10))
	assert.LessOrEqual(t, len(cjk), slugBaseMaxCJK)
}

func TestSluggerDistinctForSameTitle(t *testing.T) {
	s := NewSlugger()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[s.Make("Same Title")] = true
	}
	// 같은 밀리초에도 임의 접미사로 대부분 구분된다. 완전한 보장은 저장소 유니크 인덱스 몫이다.
	assert.Greater(t, len(seen), 40)
}
