package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a student's active login session.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// AuthEventsChannel is the Redis PubSub channel for sign-in/sign-out events.
// The attempt stream subscribes here so clients observe auth changes without
// polling.
func (r *CacheKeyStruct) AuthEventsChannel() string {
	return "auth:events"
}

var CacheKey = NewCacheKeyStruct()
