// Package pipeline 抓取结果的去重、规范化与内存存储
//
// 三个组件都是进程内状态,重启即清空,并发安全,
// 调度器与HTTP接口可以共享同一组实例。
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
)

// Pipeline 去重闸门
// 同一实例生命周期内,data相同的记录只放行第一次
type Pipeline struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewPipeline 创建去重闸门
func NewPipeline() *Pipeline {
	return &Pipeline{
		seen: make(map[string]struct{}),
	}
}

// Process 首次出现的记录原样返回,重复记录返回nil
func (p *Pipeline) Process(record *models.SpiderRecord) *models.SpiderRecord {
	if record == nil {
		return nil
	}

	key := DedupKey(record.Data)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.seen[key]; exists {
		utils.Debugf("丢弃重复记录: %s (%s)", record.URL, key[:12])
		return nil
	}
	p.seen[key] = struct{}{}
	return record
}

// Seen 已记录的去重键数量
func (p *Pipeline) Seen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

// Reset 清空去重状态
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = make(map[string]struct{})
}

// DedupKey 计算data的去重键: 规范JSON(映射键递归排序)的SHA-256
// 无法序列化的值退回到 %#v 表示
func DedupKey(data map[string]any) string {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(fmt.Sprintf("%#v", data))
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
