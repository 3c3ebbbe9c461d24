package pipeline

import (
	"sync"

	"github.com/RecoveryAshes/AdSpider/internal/models"
)

// ResultStore 按写入顺序保存规范化记录
// 无上限,需要有界内存时由调用方定期 Drain/Clear
type ResultStore struct {
	mu      sync.RWMutex
	records []models.NormalizedRecord
}

// NewResultStore 创建结果存储
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Add 追加记录, nil忽略
func (s *ResultStore) Add(record *models.NormalizedRecord) {
	if record == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *record)
}

// All 返回全部记录的副本
func (s *ResultStore) All() []models.NormalizedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NormalizedRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len 记录数
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear 清空
func (s *ResultStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// Drain 取出全部记录并清空,用于落盘
func (s *ResultStore) Drain() []models.NormalizedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.records
	s.records = nil
	if out == nil {
		out = []models.NormalizedRecord{}
	}
	return out
}
