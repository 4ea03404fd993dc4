package cache

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrLockHeld = errors.New("batch already running for this tenant")

// HostCache 는 요청 호스트 → 테넌트 ID 매핑을 보관한다.
type HostCache interface {
	Get(ctx context.Context, host string) (primitive.ObjectID, bool, error)
	Set(ctx context.Context, host string, ownerID primitive.ObjectID) error
	Invalidate(ctx context.Context, hosts ...string) error
}

// BatchLock 은 같은 테넌트의 배치가 동시에 두 번 돌지 않게 한다.
// Acquire 가 ErrLockHeld 를 반환하면 이미 다른 배치가 실행 중이다.
type BatchLock interface {
	Acquire(ctx context.Context, ownerID primitive.ObjectID) (release func(), err error)
}

const (
	hostKeyPrefix = "autoblog:host:"
	lockKeyPrefix = "autoblog:batch-lock:"
)

func hostKey(host string) string { return hostKeyPrefix + host }

func lockKey(ownerID primitive.ObjectID) string { return lockKeyPrefix + ownerID.Hex() }
