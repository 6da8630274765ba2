package certificate

// Document 表示存储在证书 Content(JSONB) 中的完整内容与样式。
// 字段名与前端提交的 JSON 保持一致。
type Document struct {
	StudentName string    `json:"studentName"`
	Students    []Student `json:"students,omitempty"`

	CustomTitleText     string `json:"customTitleText,omitempty"`
	CustomTitleImageURL string `json:"customTitleImageUrl,omitempty"`
	TitleOverride       string `json:"titleOverride,omitempty"`
	EventType           string `json:"eventType,omitempty"`

	CollegeName        string `json:"collegeName,omitempty"`
	CollegeDescription string `json:"collegeDescription,omitempty"`
	IntroLeft          string `json:"introLeft,omitempty"`
	IntroRight         string `json:"introRight,omitempty"`
	EventDescription   string `json:"eventDescription,omitempty"`
	StudentCollege     string `json:"studentCollege,omitempty"`
	EventName          string `json:"eventName,omitempty"`

	TemplateKey   string      `json:"templateKey,omitempty"`
	Logos         []string    `json:"logos,omitempty"`
	BackgroundURL string      `json:"backgroundUrl,omitempty"`
	Signatories   []Signatory `json:"signatories,omitempty"`
	TextBlocks    []TextBlock `json:"textBlocks,omitempty"`

	Styles StyleSet `json:"styles,omitempty"`

	// FontFamily 是文本块未指定字体时的兜底字体。
	FontFamily string `json:"fontFamily,omitempty"`
}

// Student 是批量创建时的单个收证人条目。
type Student struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Course   string `json:"course,omitempty"`
	Position string `json:"position,omitempty"`
}

// Signatory 是证书底部的签名人。Email/Phone 仅存储，不参与渲染。
type Signatory struct {
	Name         string `json:"name"`
	Designation  string `json:"designation,omitempty"`
	Department   string `json:"department,omitempty"`
	SignatureURL string `json:"signatureUrl,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// TextBlock 是自由文本行，位置固定（学生院校之后、活动描述之前），
// 但排版选项独立于命名区域。
type TextBlock struct {
	Label      string  `json:"label,omitempty"`
	Value      string  `json:"value,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	Align      string  `json:"align,omitempty"`
	FontSize   int     `json:"fontSize,omitempty"`
	LineHeight float64 `json:"lineHeight,omitempty"`
	Width      int     `json:"width,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
}

// Text 返回要渲染的文本；label 与 value 均为空时渲染为空。
func (b TextBlock) Text() string {
	switch {
	case b.Label == "":
		return b.Value
	case b.Value == "":
		return b.Label
	default:
		return b.Label + " " + b.Value
	}
}

// StyleSpec 是单个命名区域的排版设置。所有字段均可缺省，
// 缺省值由该区域的默认表补齐（见 defaults.go）。
type StyleSpec struct {
	FontFamily   string  `json:"fontFamily,omitempty"`
	FontSize     int     `json:"fontSize,omitempty"`
	LineHeight   float64 `json:"lineHeight,omitempty"`
	Width        int     `json:"width,omitempty"`
	Align        string  `json:"align,omitempty"`
	MarginTop    *int    `json:"marginTop,omitempty"`
	MarginBottom *int    `json:"marginBottom,omitempty"`
}

// StyleSet 把 StyleSpec 按区域名组织，与存储 JSON 的 styles 字段对应。
type StyleSet struct {
	College     StyleSpec `json:"collegeStyle,omitempty"`
	CollegeDesc StyleSpec `json:"collegeDescStyle,omitempty"`
	Title       StyleSpec `json:"titleStyle,omitempty"`
	Name        StyleSpec `json:"nameStyle,omitempty"`
	Intro       StyleSpec `json:"introStyle,omitempty"`
	EventDesc   StyleSpec `json:"eventDescStyle,omitempty"`
	Signatory   StyleSpec `json:"signatoryStyle,omitempty"`
}

// RenderableLogos 返回参与渲染的 logo 列表：去掉空串，最多两个。
func (d *Document) RenderableLogos() []string {
	out := make([]string, 0, 2)
	for _, u := range d.Logos {
		if u == "" {
			continue
		}
		out = append(out, u)
		if len(out) == 2 {
			break
		}
	}
	return out
}
