package crawlers

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemorySampler 读取系统内存使用率(0-100)
type MemorySampler func() (usedPercent float64, err error)

// SystemMemory 通过gopsutil读取系统内存使用率
func SystemMemory() (float64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmStat.UsedPercent, nil
}

// ResourceMonitor 内存压力监控器
// 长时间运行的定时抓取依靠它决定何时把结果存储落盘并清空
type ResourceMonitor struct {
	threshold float64 // 系统内存使用率阈值(%), <=0 表示关闭
	sampler   MemorySampler
	cacheTTL  time.Duration

	mu          sync.Mutex
	lastSample  float64
	lastSampled time.Time
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	UsedPercent     float64 // 系统内存使用率(%)
	Threshold       float64 // 阈值(%)
	AllocatedMemory uint64  // 当前程序已分配内存(字节)
	MemoryPressure  string  // 内存压力等级: low, medium, high
}

// NewResourceMonitor 创建资源监控器
// sampler 为nil时使用 SystemMemory
func NewResourceMonitor(threshold float64, sampler MemorySampler) *ResourceMonitor {
	if sampler == nil {
		sampler = SystemMemory
	}
	return &ResourceMonitor{
		threshold: threshold,
		sampler:   sampler,
		cacheTTL:  time.Second,
	}
}

// sample 读取内存使用率,一秒内重复调用复用缓存
func (rm *ResourceMonitor) sample() float64 {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.lastSampled.IsZero() && time.Since(rm.lastSampled) < rm.cacheTTL {
		return rm.lastSample
	}

	used, err := rm.sampler()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,跳过内存检查")
		return 0
	}
	rm.lastSample = used
	rm.lastSampled = time.Now()
	return used
}

// UnderPressure 系统内存使用率是否超过阈值
func (rm *ResourceMonitor) UnderPressure() bool {
	if rm.threshold <= 0 {
		return false
	}
	return rm.sample() >= rm.threshold
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	used := rm.sample()
	pressure := "low"
	switch {
	case rm.threshold > 0 && used >= rm.threshold:
		pressure = "high"
	case rm.threshold > 0 && used >= rm.threshold*0.8:
		pressure = "medium"
	}

	return MemoryStatus{
		UsedPercent:     used,
		Threshold:       rm.threshold,
		AllocatedMemory: memStats.Alloc,
		MemoryPressure:  pressure,
	}
}
