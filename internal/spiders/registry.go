package spiders

import (
	"sort"
	"sync"

	"github.com/RecoveryAshes/AdSpider/internal/models"
)

// Registry 爬虫注册表: 名称 -> 构造函数
// 启动时注册,之后只读; 读写都加锁,允许调度器与API并发查询
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register 注册爬虫,同名覆盖
func (r *Registry) Register(name string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = constructor
}

// Get 查找爬虫构造函数
func (r *Registry) Get(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	constructor, ok := r.constructors[name]
	return constructor, ok
}

// GetOrFail 查找爬虫构造函数,未注册时返回 *models.SpiderNotFoundError
func (r *Registry) GetOrFail(name string) (Constructor, error) {
	constructor, ok := r.Get(name)
	if !ok {
		return nil, &models.SpiderNotFoundError{Name: name}
	}
	return constructor, nil
}

// Names 按字母顺序返回已注册的爬虫名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry 注册全部内置爬虫
//
//	title      TitleSpider
//	meta_title MetaTitleSpider
//	meta       MetaSpider (meta平台)
//	tiktok     MetaSpider (tiktok平台)
//	google     MetaSpider (google平台)
//	tokens     FormTokenSpider
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("title", func(f Fetcher) Spider { return NewTitleSpider(f) })
	r.Register("meta_title", func(f Fetcher) Spider { return NewMetaTitleSpider(f) })
	r.Register("meta", func(f Fetcher) Spider { return NewMetaSpider(f, models.PlatformMeta) })
	r.Register("tiktok", func(f Fetcher) Spider { return NewMetaSpider(f, models.PlatformTikTok) })
	r.Register("google", func(f Fetcher) Spider { return NewMetaSpider(f, models.PlatformGoogle) })
	r.Register("tokens", func(f Fetcher) Spider { return NewFormTokenSpider(f) })
	return r
}
