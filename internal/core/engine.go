package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/intelligence"
	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/pipeline"
	"github.com/RecoveryAshes/AdSpider/internal/spiders"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
)

// Engine 抓取引擎
// 串联 注册表 -> 爬虫 -> 去重 -> 规范化 -> 结果存储
// 同一个Engine可以被调度器和HTTP接口并发使用
type Engine struct {
	registry   *spiders.Registry
	fetcher    spiders.Fetcher
	pipeline   *pipeline.Pipeline
	normalizer *pipeline.Normalizer
	store      *pipeline.ResultStore
	analyzer   *intelligence.Analyzer

	mu       sync.Mutex
	stats    models.ScrapeStats
	insights []intelligence.Insight
}

// RunResult 单次抓取结果
type RunResult struct {
	Record     *models.SpiderRecord     // 爬虫原始输出
	Normalized *models.NormalizedRecord // 重复时为nil
	Duplicate  bool                     // 是否被去重丢弃
	Insight    *intelligence.Insight    // 仅广告情报爬虫且提取成功时非nil
	Duration   time.Duration
}

// NewEngine 创建引擎
func NewEngine(registry *spiders.Registry, fetcher spiders.Fetcher, store *pipeline.ResultStore) *Engine {
	if store == nil {
		store = pipeline.NewResultStore()
	}
	return &Engine{
		registry:   registry,
		fetcher:    fetcher,
		pipeline:   pipeline.NewPipeline(),
		normalizer: pipeline.NewNormalizer(),
		store:      store,
		analyzer:   intelligence.NewAnalyzer(intelligence.DefaultBenchmark),
	}
}

// Registry 爬虫注册表
func (e *Engine) Registry() *spiders.Registry {
	return e.registry
}

// Store 结果存储
func (e *Engine) Store() *pipeline.ResultStore {
	return e.store
}

// Stats 返回统计副本
func (e *Engine) Stats() models.ScrapeStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Insights 返回已保存记录的营销情报副本
func (e *Engine) Insights() []intelligence.Insight {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]intelligence.Insight(nil), e.insights...)
}

// Run 使用指定爬虫抓取一个URL
// 爬虫未注册时返回 *models.SpiderNotFoundError; 抓取失败时包装原始错误
func (e *Engine) Run(ctx context.Context, spiderName, url string) (*RunResult, error) {
	constructor, err := e.registry.GetOrFail(spiderName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	spider := constructor(e.fetcher)

	record, err := spider.Run(ctx, url)
	duration := time.Since(start)
	if err != nil {
		e.record(models.ScrapeStats{Runs: 1, Failed: 1, Duration: duration.Seconds()})
		return nil, fmt.Errorf("爬虫 %s 抓取失败: %w", spiderName, err)
	}

	result := &RunResult{Record: record, Duration: duration}
	if e.pipeline.Process(record) == nil {
		result.Duplicate = true
		e.record(models.ScrapeStats{Runs: 1, Succeeded: 1, Duplicates: 1, Duration: duration.Seconds()})
		utils.Debugf("重复记录已丢弃 [%s] %s", spiderName, url)
		return result, nil
	}

	result.Normalized = e.normalizer.NormalizeRecord(record)
	e.store.Add(result.Normalized)
	e.record(models.ScrapeStats{Runs: 1, Succeeded: 1, Stored: 1, Duration: duration.Seconds()})

	// 页面不提供互动数据, 指标按0计算
	if ad, ok := record.Data["ad_intelligence"].(*models.AdIntelligence); ok && ad != nil {
		result.Insight = e.analyzer.Analyze(ad, intelligence.Metrics{})
		e.mu.Lock()
		e.insights = append(e.insights, *result.Insight)
		e.mu.Unlock()
	}
	utils.Debugf("记录已保存 [%s] %s (%.2fs)", spiderName, url, duration.Seconds())

	return result, nil
}

// record 累加统计
func (e *Engine) record(delta models.ScrapeStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Add(delta)
}
