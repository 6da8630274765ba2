package certificate

// Region 是版面上的命名区域。每个区域有自己的默认排版表。
type Region int

const (
	RegionCollege Region = iota
	RegionCollegeDesc
	RegionTitle
	RegionName
	RegionIntro
	RegionEventDesc
	RegionSignatory
)

var regionNames = map[Region]string{
	RegionCollege:     "college",
	RegionCollegeDesc: "collegeDesc",
	RegionTitle:       "title",
	RegionName:        "name",
	RegionIntro:       "intro",
	RegionEventDesc:   "eventDesc",
	RegionSignatory:   "signatory",
}

func (r Region) String() string { return regionNames[r] }

// ResolvedStyle 是补齐默认值之后的区域样式，所有字段都有具体取值。
// FontFamily 为空串表示继承页面字体。
type ResolvedStyle struct {
	FontFamily   string
	FontSize     int
	LineHeight   float64
	Width        int
	Align        string
	MarginTop    int
	MarginBottom int
}

// 默认表按版式区分：两种版式在原始设计里就带着不同的基准字号与行距。
// 数值不做范围校验，越界只会产生越界的视觉效果。
var directDefaults = map[Region]ResolvedStyle{
	RegionCollege:     {FontSize: 18, LineHeight: 1.3, Width: 80, Align: "left", MarginTop: 5, MarginBottom: 15},
	RegionCollegeDesc: {FontSize: 14, LineHeight: 1.3, Width: 80, Align: "center", MarginTop: 5, MarginBottom: 20},
	RegionTitle:       {FontSize: 48, LineHeight: 1.3, Width: 80, Align: "center", MarginTop: 20, MarginBottom: 20},
	RegionName:        {FontSize: 44, LineHeight: 1.3, Width: 80, Align: "center", MarginTop: 15, MarginBottom: 15},
	RegionIntro:       {FontSize: 16, LineHeight: 1.4, Width: 80, Align: "center", MarginTop: 10, MarginBottom: 10},
	RegionEventDesc:   {FontSize: 16, LineHeight: 1.4, Width: 80, Align: "center", MarginTop: 10, MarginBottom: 10},
	RegionSignatory:   {FontSize: 12, LineHeight: 1.2, Width: 80, Align: "center", MarginTop: 40, MarginBottom: 10},
}

var minimalDefaults = map[Region]ResolvedStyle{
	RegionCollege:     {FontSize: 20, LineHeight: 1.3, Width: 80, Align: "center", MarginTop: 0, MarginBottom: 30},
	RegionCollegeDesc: {FontSize: 14, LineHeight: 1.5, Width: 80, Align: "center", MarginTop: 10, MarginBottom: 20},
	RegionTitle:       {FontSize: 36, LineHeight: 1.2, Width: 80, Align: "center", MarginTop: 20, MarginBottom: 20},
	RegionName:        {FontSize: 32, LineHeight: 1.3, Width: 80, Align: "center", MarginTop: 15, MarginBottom: 15},
	RegionIntro:       {FontSize: 18, LineHeight: 1.5, Width: 80, Align: "center", MarginTop: 10, MarginBottom: 10},
	RegionEventDesc:   {FontSize: 18, LineHeight: 1.5, Width: 80, Align: "center", MarginTop: 15, MarginBottom: 15},
	RegionSignatory:   {FontSize: 14, LineHeight: 1.2, Width: 80, Align: "center", MarginTop: 40, MarginBottom: 20},
}

// DefaultStyle 返回指定版式下某区域的默认样式。
func DefaultStyle(v Variant, r Region) ResolvedStyle {
	if v == VariantMinimal {
		return minimalDefaults[r]
	}
	return directDefaults[r]
}

// 介绍语的默认前后缀也随版式不同。
const (
	directIntroLeft   = "This is to certify that Mr./Ms."
	directIntroRight  = "has participated in the event"
	minimalIntroLeft  = "This is to certify that"
	minimalIntroRight = "has successfully completed the program"
)

// DefaultIntroLeft 返回版式对应的介绍语左半默认值。
func DefaultIntroLeft(v Variant) string {
	if v == VariantMinimal {
		return minimalIntroLeft
	}
	return directIntroLeft
}

// DefaultIntroRight 返回版式对应的介绍语右半默认值。
func DefaultIntroRight(v Variant) string {
	if v == VariantMinimal {
		return minimalIntroRight
	}
	return directIntroRight
}

// Resolve 用默认表补齐单个区域样式。解析是全量的：任何缺省或非法
// （零值）字段都回落到默认值，永不失败。
func Resolve(spec StyleSpec, v Variant, r Region) ResolvedStyle {
	out := DefaultStyle(v, r)
	if spec.FontFamily != "" {
		out.FontFamily = spec.FontFamily
	}
	if spec.FontSize > 0 {
		out.FontSize = spec.FontSize
	}
	if spec.LineHeight > 0 {
		out.LineHeight = spec.LineHeight
	}
	if spec.Width > 0 {
		out.Width = spec.Width
	}
	switch spec.Align {
	case "left", "center", "right":
		out.Align = spec.Align
	}
	if spec.MarginTop != nil && *spec.MarginTop >= 0 {
		out.MarginTop = *spec.MarginTop
	}
	if spec.MarginBottom != nil && *spec.MarginBottom >= 0 {
		out.MarginBottom = *spec.MarginBottom
	}
	return out
}

// ResolvedStyles 把文档的全部区域样式一次性补齐。
type ResolvedStyles struct {
	College     ResolvedStyle
	CollegeDesc ResolvedStyle
	Title       ResolvedStyle
	Name        ResolvedStyle
	Intro       ResolvedStyle
	EventDesc   ResolvedStyle
	Signatory   ResolvedStyle
}

// ResolveStyles 返回文档在其版式下的完整样式集。
func (d *Document) ResolveStyles() ResolvedStyles {
	v := d.Variant()
	return ResolvedStyles{
		College:     Resolve(d.Styles.College, v, RegionCollege),
		CollegeDesc: Resolve(d.Styles.CollegeDesc, v, RegionCollegeDesc),
		Title:       Resolve(d.Styles.Title, v, RegionTitle),
		Name:        Resolve(d.Styles.Name, v, RegionName),
		Intro:       Resolve(d.Styles.Intro, v, RegionIntro),
		EventDesc:   Resolve(d.Styles.EventDesc, v, RegionEventDesc),
		Signatory:   Resolve(d.Styles.Signatory, v, RegionSignatory),
	}
}

// Title 返回标题文本的优先级结果：titleOverride，其次旧版
// eventType=custom 的拼接标题，最后是字面量 CERTIFICATE。
// 标题图片的优先级更高，由编译器在调用前判断。
func (d *Document) Title() string {
	if d.TitleOverride != "" {
		return d.TitleOverride
	}
	if d.EventType == "custom" && d.CustomTitleText != "" {
		return "CERTIFICATE OF " + d.CustomTitleText
	}
	return "CERTIFICATE"
}
