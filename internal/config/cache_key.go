package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPackageKey returns the cache key for a published exam package
func (r *CacheKeyStruct) ExamPackageKey(token string) string {
	return fmt.Sprintf("exam:%s:package", strings.ToUpper(token))
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(token string) string {
	return fmt.Sprintf("exam:%s:monitor", strings.ToUpper(token))
}

var CacheKey = NewCacheKeyStruct()
