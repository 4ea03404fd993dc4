package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"github.com/gosimple/slug"
)

const (
	slugBaseMax    = 40
	slugBaseMaxCJK = 30
	slugMinBase    = 3
	slugAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Slugger 는 제목 기반 slug 에 시간과 임의 접미사를 붙인다.
// 유일성의 최종 보장은 (owner_id, slug) 유니크 인덱스와 재시도가 담당한다.
type Slugger struct {
	now  func() time.Time
	rand func(n int) int
}

func NewSlugger() *Slugger {
	return &Slugger{now: time.Now, rand: rand.IntN}
}

// Make 는 "<base>-<6자리 시간><3자리 base36>" 형태의 slug 를 만든다.
func (s *Slugger) Make(title string) string {
	base := Base(title)
	suffix := fmt.Sprintf("%06d", s.now().UnixMilli()%1_000_000)
	var b strings.Builder
	b.Grow(len(base) + 10)
	b.WriteString(base)
	b.WriteByte('-')
	b.WriteString(suffix)
	for i := 0; i < 3; i++ {
		b.WriteByte(slugAlphabet[s.rand(len(slugAlphabet))])
	}
	return b.String()
}

// Base 는 접미사 없는 slug 본체다. 음역 후 3자 미만이면 "post".
func Base(title string) string {
	base := slug.Make(title)
	limit := slugBaseMax
	if hasHan(title) {
		limit = slugBaseMaxCJK
	}
	if len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	if len(base) < slugMinBase {
		return "post"
	}
	return base
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
