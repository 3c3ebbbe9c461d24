// Package crawlers 提供具备反爬虫韧性的HTTP抓取会话
//
// # 概述
//
// Session 基于Colly实现,负责一次抓取中的全部网络细节:
// User-Agent轮换、浏览器风格头部、人类化随机延迟、状态码分类与指数退避重试。
// 同一个Session的多次请求共享cookie jar,因此可以在定时抓取的多轮之间保持会话身份。
//
// # 状态码分类
//
//   - 200: 成功,返回响应体前再随机停顿 0.3-0.7 秒
//   - 403, 429: 被拦截,退避后换身份重试
//   - 500, 502, 503, 504: 临时故障,退避后重试
//   - 其他: 立即返回 *models.HTTPStatusError
//
// 退避时长为 min(60s, 2^attempt) 加上 [0, min(2s, delay)] 的随机抖动。
// 所有等待都可被context中断。
//
// 使用示例:
//
//	session, err := crawlers.NewSession(models.DefaultSessionConfig(), headerManager)
//	if err != nil {
//	    return err
//	}
//	body, err := session.Fetch(ctx, "https://example.com")
//
// # 响应解压
//
// 请求头声明 Accept-Encoding: gzip, deflate, br 时,Go传输层不再自动解压,
// 由 decompressResponse 根据 Content-Encoding 处理 (brotli 使用 andybalholm/brotli)。
//
// # 资源监控
//
// ResourceMonitor 通过gopsutil读取系统内存使用率,
// 定时抓取在内存压力过高时将结果落盘并清空内存存储。
package crawlers
