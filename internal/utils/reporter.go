package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
)

const (
	// FormatJSON JSON报告格式
	FormatJSON = "json"

	// FormatYAML YAML报告格式
	FormatYAML = "yaml"
)

// Reporter 报告生成器
type Reporter struct {
	outputDir string
	format    string
}

// NewReporter 创建报告生成器
// format 为空或未知时使用JSON
func NewReporter(outputDir, format string) *Reporter {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatYAML {
		format = FormatJSON
	}
	return &Reporter{
		outputDir: outputDir,
		format:    format,
	}
}

// ReportsDir 报告目录
func (r *Reporter) ReportsDir() string {
	return filepath.Join(r.outputDir, "reports")
}

// GenerateReport 写入抓取报告,返回文件路径
// 文件名: <spider>_<开始时间>_<报告ID前8位>.<json|yaml>
func (r *Reporter) GenerateReport(report *models.ScrapeReport) (string, error) {
	reportsDir := r.ReportsDir()
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	filename := fmt.Sprintf("%s_%s_%s.%s",
		sanitizeName(report.Spider), report.StartedAt.UTC().Format("20060102T150405"), id, r.format)

	path := filepath.Join(reportsDir, filename)
	if err := r.save(path, report); err != nil {
		return "", err
	}

	Infof("✅ 报告已生成: %s (%d条记录, %d个错误)", path, len(report.Records), len(report.Errors))
	return path, nil
}

// save 按格式序列化并写入文件
func (r *Reporter) save(path string, data interface{}) error {
	var (
		content []byte
		err     error
	)
	switch r.format {
	case FormatYAML:
		content, err = yaml.Marshal(data)
	default:
		content, err = json.MarshalIndent(data, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// sanitizeName 文件名中只保留字母数字和下划线
func sanitizeName(name string) string {
	if name == "" {
		return "scrape"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
