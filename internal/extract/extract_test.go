package extract

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
}

func TestExtractBlocks(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantCount int
	}{
		{"无JSON块", "<html><body>plain</body></html>", 0},
		{"单个ld+json", `<script type="application/ld+json">{"id":"ad-1"}</script>`, 1},
		{"属性大小写与单引号", `<SCRIPT TYPE='application/ld+json' id="x">{"id":1}</SCRIPT>`, 1},
		{"window赋值", `<script>window._sharedData = {"pk": 7};</script>`, 1},
		{"普通变量赋值", `<script>var __INITIAL = {"a": {"b": 1}};</script>`, 1},
		{"损坏的块被跳过", `<script type="application/ld+json">{broken</script><script type="application/ld+json">{"ok":true}</script>`, 1},
		{"赋值与ld+json同时存在", `<script>window._sharedData = {"x":1};</script><script type="application/ld+json">[{"y":2}]</script>`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := ExtractBlocks(tt.html)
			if len(blocks) != tt.wantCount {
				t.Errorf("期望%d个块, 实际%d个: %v", tt.wantCount, len(blocks), blocks)
			}
		})
	}
}

func TestExtractBlocks_Order(t *testing.T) {
	html := `<script type="application/ld+json">{"id":"ld"}</script>
<script>window._sharedData = {"id":"assign"};</script>`

	blocks := ExtractBlocks(html)
	if len(blocks) != 2 {
		t.Fatalf("期望2个块, 实际%d", len(blocks))
	}
	first, _ := blocks[0].(Object).Get("id")
	if first != "assign" {
		t.Errorf("赋值块应排在ld+json之前, 实际第一个块id=%v", first)
	}
}

func TestParseJSON_KeepsOrder(t *testing.T) {
	value, err := ParseJSON(`{"b":1,"a":{"z":null,"y":[1,"x"]},"b":2}`)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	obj := value.(Object)
	if len(obj) != 2 || obj[0].Key != "b" || obj[1].Key != "a" {
		t.Errorf("键顺序不符: %+v", obj)
	}
	if v, _ := obj.Get("b"); v != json.Number("2") {
		t.Errorf("重复键应取最后的值, 实际 %v", v)
	}

	out, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"b":2,"a":{"z":null,"y":[1,"x"]}}` {
		t.Errorf("序列化结果不符: %s", out)
	}

	for _, bad := range []string{"", "{", `{"a":1} trailing`, "{'a':1}"} {
		if _, err := ParseJSON(bad); err == nil {
			t.Errorf("期望解析失败: %q", bad)
		}
	}
}

func TestFindNested(t *testing.T) {
	value, err := ParseJSON(`{
		"meta": {"caption": "nested caption"},
		"items": [{"text": "in list"}],
		"copy": null,
		"message": "top level"
	}`)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	// 当前对象的别名键优先于递归查找; null视为缺失
	if got := FindNested(value, "copy", "message", "caption"); got != "top level" {
		t.Errorf("期望 'top level', 实际 %v", got)
	}
	// 当前对象没有别名时按键顺序递归
	if got := FindNested(value, "caption", "text"); got != "nested caption" {
		t.Errorf("期望 'nested caption', 实际 %v", got)
	}
	if got := FindNested(value, "text"); got != "in list" {
		t.Errorf("期望 'in list', 实际 %v", got)
	}
	if got := FindNested(value, "missing"); got != nil {
		t.Errorf("期望nil, 实际 %v", got)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"压缩空白", "  Hello \n\t world  ", "Hello world"},
		{"保留1个emoji", "Sale 🔥 now", "Sale 🔥 now"},
		{"保留2个连续emoji", "Sale 🔥🔥 now", "Sale 🔥🔥 now"},
		{"3个连续emoji替换为空格", "Sale🔥🔥🔥now", "Sale now"},
		{"emoji替换后再次压缩空白", "Sale 🔥🔥🔥🔥 now", "Sale now"},
		{"杂项符号区块", "Stars ☀☀☀ here", "Stars here"},
		{"空字符串", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   string
		wantOK bool
	}{
		{"ISO日期", "2024-01-01", "2024-01-01", true},
		{"ISO时间取前10位", "2023-12-25T10:00:00+0000", "2023-12-25", true},
		{"Unix时间戳", json.Number("1704067200"), "2024-01-01", true},
		{"浮点时间戳", json.Number("1704153599.9"), "2024-01-01", true},
		{"无效字符串", "yesterday", "", false},
		{"无效日期", "2024-13-40", "", false},
		{"超出范围的时间戳", json.Number("1e20"), "", false},
		{"布尔值", true, "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseDate(%v) = %s, want %s", tt.value, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestMapAdIntelligence(t *testing.T) {
	t.Run("ld+json广告块", func(t *testing.T) {
		html := `<script type="application/ld+json">{"id":"ad-456","start_date":"2024-01-01","copy":"Test copy per annuncio."}</script>`
		ad := MapAdIntelligence(ExtractBlocks(html), models.PlatformMeta, fixedNow)
		if ad == nil {
			t.Fatal("期望得到广告情报")
		}
		if ad.AdID != "ad-456" {
			t.Errorf("AdID = %s", ad.AdID)
		}
		if ad.StartDate.Format("2006-01-02") != "2024-01-01" {
			t.Errorf("StartDate = %s", ad.StartDate)
		}
		if ad.CopyText == nil || *ad.CopyText != "Test copy per annuncio." {
			t.Errorf("CopyText = %v", ad.CopyText)
		}
		if ad.CreativeURL != nil {
			t.Errorf("CreativeURL应为nil, 实际 %v", *ad.CreativeURL)
		}
	})

	t.Run("无块时使用占位值", func(t *testing.T) {
		ad := MapAdIntelligence(nil, models.PlatformMeta, fixedNow)
		if ad == nil {
			t.Fatal("期望得到占位广告情报")
		}
		if ad.AdID != models.UnknownAdID {
			t.Errorf("AdID = %s, want unknown", ad.AdID)
		}
		if !ad.StartDate.Equal(models.TruncateDate(fixedNow())) {
			t.Errorf("StartDate = %s, want today", ad.StartDate)
		}
		if ad.DaysActive() != 0 || ad.ConfidenceScore() != 0 {
			t.Errorf("占位广告派生字段应为0")
		}
	})

	t.Run("逐字段逐块查找", func(t *testing.T) {
		html := `<script>window._sharedData = {"entry":{"pk":12345,"caption":"  Big   sale 🔥🔥🔥 today "}};</script>
<script type="application/ld+json">{"ad_id":"later","image_url":"https://cdn.example/a.jpg","created_time":1704067200}</script>`
		ad := MapAdIntelligence(ExtractBlocks(html), models.PlatformTikTok, fixedNow)
		if ad == nil {
			t.Fatal("期望得到广告情报")
		}
		if ad.AdID != "12345" {
			t.Errorf("数字ID应字符串化且第一个块优先, 实际 %s", ad.AdID)
		}
		if ad.CopyText == nil || *ad.CopyText != "Big sale today" {
			t.Errorf("CopyText = %v", ad.CopyText)
		}
		if ad.CreativeURL == nil || *ad.CreativeURL != "https://cdn.example/a.jpg" {
			t.Errorf("CreativeURL = %v", ad.CreativeURL)
		}
		if ad.StartDate.Format("2006-01-02") != "2024-01-01" {
			t.Errorf("StartDate = %s", ad.StartDate)
		}
		if ad.Platform != models.PlatformTikTok {
			t.Errorf("Platform = %s", ad.Platform)
		}
	})

	t.Run("无法解析的日期继续查找后续块", func(t *testing.T) {
		html := `<script type="application/ld+json">{"start_date":"soon"}</script>
<script type="application/ld+json">{"startDate":"2024-02-01"}</script>`
		ad := MapAdIntelligence(ExtractBlocks(html), models.PlatformMeta, fixedNow)
		if ad == nil || ad.StartDate.Format("2006-01-02") != "2024-02-01" {
			t.Errorf("期望2024-02-01, 实际 %+v", ad)
		}
	})

	t.Run("未来开始日期返回nil", func(t *testing.T) {
		html := `<script type="application/ld+json">{"id":"x","start_date":"2030-01-01"}</script>`
		if ad := MapAdIntelligence(ExtractBlocks(html), models.PlatformMeta, fixedNow); ad != nil {
			t.Errorf("未来日期应返回nil, 实际 %+v", ad)
		}
	})

	t.Run("非字符串文案被忽略", func(t *testing.T) {
		html := `<script type="application/ld+json">{"text":{"nested":true}}</script>`
		ad := MapAdIntelligence(ExtractBlocks(html), models.PlatformMeta, fixedNow)
		if ad == nil || ad.CopyText != nil {
			t.Errorf("非字符串文案应为nil, 实际 %+v", ad)
		}
	})
}
