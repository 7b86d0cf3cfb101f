package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamDefinitionKey returns the cache key for an exam's full definition
// (questions, answer key, marks). Cached as JSON.
func (r *CacheKeyStruct) ExamDefinitionKey(examID string) string {
	return fmt.Sprintf("exam:%s:definition", examID)
}

// ResultMarkerKey returns the key marking that a result for this
// (exam, student) pair has been produced and is queued or persisted.
// Keeps the existence check correct while the persistence queue drains.
func (r *CacheKeyStruct) ResultMarkerKey(examID, studentID string) string {
	return fmt.Sprintf("exam:%s:student:%s:result", examID, studentID)
}

var CacheKey = NewCacheKeyStruct()
