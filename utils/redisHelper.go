package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/orders_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

// get type name of struct
func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis cache */

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// retrieve instance (nil result means cache miss)
func RetrieveRedis[T any](id int) (*T, error) {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	var result T
	found, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &result, nil
}

func RemoveRedis[T any](id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}

/* Locking */

// ProductStockLock serializes stock read-modify-write cycles on one
// product across concurrent requests. The floor-at-zero clamp alone
// cannot prevent two writers both claiming the last unit; the lock can.
// Callers must invoke the returned release func when the adjustment is
// persisted.
func ProductStockLock(ctx context.Context, productId int, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", productId, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}

	lockKey := fmt.Sprintf("stockLock:product:%d", productId)
	backoff := redislock.LinearBackoff(100 * time.Millisecond)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{RetryStrategy: redislock.LimitRetry(backoff, 50)})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain stock lock for product", productId, err)
		return nil, errors.New("could not obtain stock lock for product")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining stock lock for product", productId, err)
		return nil, err
	}

	release := func() {
		_ = lock.Release(context.Background())
	}
	return release, nil
}
