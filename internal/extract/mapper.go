package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
)

// 各字段的别名键,按优先级排列
var (
	AdIDKeys = []string{
		"ad_id", "id", "adId", "ad_snapshot_id",
		"pk", "media_id", "campaign_id",
	}
	CopyTextKeys = []string{
		"copy_text", "copy", "caption", "text", "message", "body",
		"ad_copy", "ad_snapshot_body", "description",
	}
	CreativeURLKeys = []string{
		"creative_url", "creative_url_url", "image_url", "video_url",
		"thumbnail_url", "display_url", "media_url",
	}
	StartDateKeys = []string{
		"start_date", "start_time", "created_time", "timestamp",
		"created_at", "startDate", "launch_date",
	}
)

// 时间戳有效范围: 0001-01-01 至 9999-12-31 (UTC)
const (
	minEpoch = -62135596800
	maxEpoch = 253402300799
)

// MapAdIntelligence 从JSON块中提取广告情报
// 未找到的ID和开始日期使用占位值 ("unknown" 与今天);
// 开始日期晚于今天时返回nil
func MapAdIntelligence(blocks []any, platform models.Platform, now func() time.Time) *models.AdIntelligence {
	if now == nil {
		now = time.Now
	}

	var (
		adID, copyText, creativeURL *string
		startDate                   *time.Time
	)

	for _, block := range blocks {
		if adID == nil {
			if raw := FindNested(block, AdIDKeys...); raw != nil {
				id := stringifyID(raw)
				adID = &id
			}
		}

		if copyText == nil {
			if raw, ok := FindNested(block, CopyTextKeys...).(string); ok {
				cleaned := CleanText(raw)
				copyText = &cleaned
			}
		}

		if creativeURL == nil {
			if raw, ok := FindNested(block, CreativeURLKeys...).(string); ok {
				creativeURL = &raw
			}
		}

		if startDate == nil {
			if d, ok := ParseDate(FindNested(block, StartDateKeys...)); ok {
				startDate = &d
			}
		}
	}

	id := models.UnknownAdID
	if adID != nil && *adID != "" {
		id = *adID
	}

	start := models.TruncateDate(now())
	if startDate != nil {
		start = *startDate
	}

	ad, err := models.NewAdIntelligenceAt(id, platform, start, emptyToNil(copyText), emptyToNil(creativeURL), now)
	if err != nil {
		utils.Debugf("广告情报构建失败 [ad_id=%s]: %v", id, err)
		return nil
	}
	return ad
}

// ParseDate 解析开始日期
//   - 数字: Unix时间戳(秒), 转换为UTC日期
//   - 字符串: 取前10个字符按 YYYY-MM-DD 解析
//
// 其他类型视为缺失
func ParseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return models.TruncateDate(v), true

	case json.Number:
		f, err := v.Float64()
		if err != nil || f < minEpoch || f > maxEpoch {
			return time.Time{}, false
		}
		return models.TruncateDate(time.Unix(int64(f), 0).UTC()), true

	case string:
		if len(v) > 10 {
			v = v[:10]
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// stringifyID 数字ID转为整数字符串,复合值输出为JSON
func stringifyID(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return strconv.FormatInt(n, 10)
		}
		if f, err := v.Float64(); err == nil {
			return strconv.FormatFloat(math.Trunc(f), 'f', 0, 64)
		}
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case Object, []any:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(value)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
