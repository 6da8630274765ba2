package layout

import (
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"ecertify/internal/certificate"
)

// Options 控制编译结果中允许的唯一分叉：学生姓名是否渲染为可编辑
// 输入框。除此之外，交互预览与导出消费的标记完全一致。
type Options struct {
	EditableName bool
}

var tpl = template.Must(template.New("certificate").Parse(certificateTemplate))

// Compile 把证书文档编译成画布尺寸固定的 HTML。纯函数：同一文档两次
// 编译的输出逐字节相同，不依赖时间、随机数或任何外部状态。
func Compile(doc *certificate.Document) (string, error) {
	return CompileWithOptions(doc, Options{})
}

// CompileWithOptions 同 Compile，带编译选项。
func CompileWithOptions(doc *certificate.Document, opts Options) (string, error) {
	data := buildPageData(doc, opts)
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute certificate template: %w", err)
	}
	return b.String(), nil
}

type textBlockView struct {
	Style template.CSS
	Text  string
}

type signatoryView struct {
	SignatureURL template.URL
	Name         string
	Detail       string
}

type pageData struct {
	Minimal      bool
	EditableName bool
	FontLinks    template.HTML

	Width  int
	Height int

	CertificateCSS     template.CSS
	HeaderMarginBottom int
	LogoHeight         int

	HeaderMode int
	LeftLogo   template.URL
	RightLogo  template.URL

	CollegeName string
	CollegeCSS  template.CSS

	CollegeDescription string
	CollegeDescCSS     template.CSS

	TitleImage       template.URL
	TitleText        string
	TitleCSS         template.CSS
	TitleImageMargin template.CSS

	IntroLeft   string
	IntroRight  string
	StudentName string
	IntroCSS    template.CSS
	NameCSS     template.CSS

	StudentCollege    string
	StudentCollegeCSS template.CSS

	TextBlocks []textBlockView

	EventDescription string
	EventDescCSS     template.CSS

	EventLine    string
	EventLineCSS template.CSS

	Signatories        []signatoryView
	SignatoriesCSS     template.CSS
	SignatoryItemCSS   template.CSS
	SignatureCSS       template.CSS
	SignatureSlotCSS   template.CSS
	SignatoryNameCSS   template.CSS
	SignatoryDetailCSS template.CSS
}

// 活动日期字段早已从界面移除，但版面保留日期行的位置。这里保留
// 空串占位与拼接逻辑，除活动名外不会拼出任何内容。
const (
	eventDateStart = ""
	eventDateEnd   = ""
)

func buildPageData(doc *certificate.Document, opts Options) pageData {
	v := doc.Variant()
	minimal := v == certificate.VariantMinimal
	st := doc.ResolveStyles()

	data := pageData{
		Minimal:      minimal,
		EditableName: opts.EditableName,
		FontLinks:    fontLinks(doc),
		Width:        CanvasWidth,
		Height:       CanvasHeight,

		HeaderMarginBottom: st.College.MarginBottom,

		CollegeName:        doc.CollegeName,
		CollegeDescription: doc.CollegeDescription,
		StudentName:        doc.StudentName,
		StudentCollege:     doc.StudentCollege,
		EventDescription:   doc.EventDescription,
	}

	logos := doc.RenderableLogos()
	data.HeaderMode = len(logos)
	if len(logos) > 0 {
		data.LeftLogo = template.URL(logos[0])
	}
	if len(logos) > 1 {
		data.RightLogo = template.URL(logos[1])
	}

	if minimal {
		data.LogoHeight = 60
		data.CertificateCSS = template.CSS("background: #ffffff; border: 2px solid #1f2937;")
	} else {
		data.LogoHeight = 56
		bg := "none"
		if doc.BackgroundURL != "" {
			bg = "url(" + doc.BackgroundURL + ")"
		}
		data.CertificateCSS = template.CSS(fmt.Sprintf(
			"background-size: cover; background-position: center; background-repeat: no-repeat; background-image: %s;", bg))
	}

	data.CollegeCSS = collegeCSS(st.College, minimal)
	data.CollegeDescCSS = blockCSS(st.CollegeDesc, minimalColor(minimal, "#6b7280"))

	if doc.CustomTitleImageURL != "" {
		data.TitleImage = template.URL(doc.CustomTitleImageURL)
	} else {
		data.TitleText = doc.Title()
	}
	data.TitleCSS = titleCSS(st.Title, minimal)
	data.TitleImageMargin = template.CSS(fmt.Sprintf("%dpx auto %dpx auto", st.Title.MarginTop, st.Title.MarginBottom))

	data.IntroLeft = doc.IntroLeft
	if data.IntroLeft == "" {
		data.IntroLeft = certificate.DefaultIntroLeft(v)
	}
	data.IntroRight = doc.IntroRight
	if data.IntroRight == "" {
		data.IntroRight = certificate.DefaultIntroRight(v)
	}
	data.IntroCSS = blockCSS(st.Intro, minimalColor(minimal, "#374151"))
	data.NameCSS = nameCSS(st.Name, minimal, opts.EditableName)

	data.StudentCollegeCSS = studentCollegeCSS(doc, st.Intro, minimal)

	for _, b := range doc.TextBlocks {
		text := b.Text()
		if text == "" {
			continue
		}
		data.TextBlocks = append(data.TextBlocks, textBlockView{
			Style: textBlockCSS(b, doc.FontFamily),
			Text:  text,
		})
	}

	data.EventDescCSS = blockCSS(st.EventDesc, minimalColor(minimal, "#374151"))

	if doc.EventName != "" {
		data.EventLine = doc.EventName + " • "
	}
	data.EventLine += eventDateStart
	if eventDateEnd != "" {
		data.EventLine += " to " + eventDateEnd
	}
	data.EventLineCSS = eventLineCSS(st.Intro, minimal)

	data.Signatories = signatoryViews(doc.Signatories, minimal)
	fillSignatoryCSS(&data, st.Signatory, minimal)

	return data
}

// SignatoryLimit 返回版式允许渲染的签名人上限。
func SignatoryLimit(v certificate.Variant) int {
	if v == certificate.VariantMinimal {
		return 2
	}
	return 4
}

func signatoryViews(signatories []certificate.Signatory, minimal bool) []signatoryView {
	limit := SignatoryLimit(certificate.VariantDirect)
	if minimal {
		limit = SignatoryLimit(certificate.VariantMinimal)
	}
	if len(signatories) > limit {
		signatories = signatories[:limit]
	}
	views := make([]signatoryView, 0, len(signatories))
	for _, s := range signatories {
		name := s.Name
		if name == "" {
			name = "Signatory"
		}
		detail := s.Designation
		if detail == "" {
			detail = "Designation"
		}
		if s.Department != "" {
			detail += ", " + s.Department
		}
		views = append(views, signatoryView{
			SignatureURL: template.URL(s.SignatureURL),
			Name:         name,
			Detail:       detail,
		})
	}
	return views
}

func fillSignatoryCSS(data *pageData, s certificate.ResolvedStyle, minimal bool) {
	if minimal {
		data.SignatoriesCSS = template.CSS(fmt.Sprintf(
			"display: flex; justify-content: center; gap: 60px; width: %d%%; margin: %dpx auto %dpx auto;",
			s.Width, s.MarginTop, s.MarginBottom))
		data.SignatoryItemCSS = "text-align: center; flex: 1;"
		data.SignatureCSS = "height: 50px; margin: 0 auto 10px;"
		data.SignatureSlotCSS = "height: 50px;"
		data.SignatoryNameCSS = template.CSS(fmt.Sprintf(
			"border-top: 2px solid #374151; padding-top: 8px; font-weight: 600; font-family: %s; font-size: %dpx; line-height: %s; text-align: %s; color: #1f2937;",
			family(s.FontFamily), s.FontSize, lh(s.LineHeight), s.Align))
		data.SignatoryDetailCSS = template.CSS(fmt.Sprintf(
			"color: #6b7280; font-family: %s; font-size: %dpx; text-align: %s; margin-top: 4px;",
			family(s.FontFamily), s.FontSize-2, s.Align))
		return
	}
	data.SignatoriesCSS = template.CSS(fmt.Sprintf(
		"display: grid; grid-template-columns: repeat(2, 1fr); gap: 40px; width: %d%%; margin: %dpx auto %dpx auto;",
		s.Width, s.MarginTop, s.MarginBottom))
	data.SignatoryItemCSS = "text-align: center;"
	data.SignatureCSS = "height: 40px; margin: 0 auto;"
	data.SignatureSlotCSS = "height: 40px;"
	data.SignatoryNameCSS = template.CSS(fmt.Sprintf(
		"border-top: 1px solid #374151; margin-top: 8px; padding-top: 4px; font-weight: 600; font-family: %s; font-size: %dpx; line-height: %s; text-align: %s;",
		family(s.FontFamily), s.FontSize, lh(s.LineHeight), s.Align))
	data.SignatoryDetailCSS = template.CSS(fmt.Sprintf(
		"color: #4b5563; font-family: %s; font-size: %dpx; text-align: %s;",
		family(s.FontFamily), s.FontSize-2, s.Align))
}

func collegeCSS(s certificate.ResolvedStyle, minimal bool) template.CSS {
	if minimal {
		return template.CSS(fmt.Sprintf(
			"font-family: %s; font-size: %dpx; line-height: %s; text-align: %s; font-weight: bold; color: #1f2937;",
			family(s.FontFamily), s.FontSize, lh(s.LineHeight), s.Align))
	}
	// 直排版式的校名按 0.8 缩放，且不小于 12px。
	size := scaledPx(float64(s.FontSize)*0.8, 12)
	return template.CSS(fmt.Sprintf(
		"font-family: %s; font-size: %spx; line-height: %s; text-align: %s; margin-top: %dpx; font-weight: bold;",
		family(s.FontFamily), size, lh(s.LineHeight), s.Align, s.MarginTop))
}

func titleCSS(s certificate.ResolvedStyle, minimal bool) template.CSS {
	base := fmt.Sprintf(
		"font-family: %s; font-size: %dpx; line-height: %s; width: %d%%; margin: %dpx auto %dpx auto; text-align: %s;",
		family(s.FontFamily), s.FontSize, lh(s.LineHeight), s.Width, s.MarginTop, s.MarginBottom, s.Align)
	if minimal {
		return template.CSS(base + " font-weight: 700; color: #1e40af;")
	}
	return template.CSS(base + " font-weight: 800; color: #1e40af; letter-spacing: 0.025em;")
}

func nameCSS(s certificate.ResolvedStyle, minimal, editable bool) template.CSS {
	size := strconv.Itoa(s.FontSize)
	weight := 800
	if !minimal {
		// 直排版式的姓名按 0.7 缩放，且不小于 20px。
		size = scaledPx(float64(s.FontSize)*0.7, 20)
		weight = 900
	}
	css := fmt.Sprintf(
		"font-family: %s; font-size: %spx; line-height: %s; text-align: %s; margin: %dpx 0 %dpx 0; color: #1d4ed8; font-weight: %d;",
		family(s.FontFamily), size, lh(s.LineHeight), s.Align, s.MarginTop, s.MarginBottom, weight)
	if editable {
		css += " background: transparent; border: none; outline: none; min-width: 200px;"
	}
	return template.CSS(css)
}

// blockCSS 渲染带宽度与上下边距的普通文本块（院系简介、介绍语、
// 活动描述共用的形态）。
func blockCSS(s certificate.ResolvedStyle, color string) template.CSS {
	css := fmt.Sprintf(
		"width: %d%%; margin: %dpx auto %dpx auto; text-align: %s; font-family: %s; font-size: %dpx; line-height: %s;",
		s.Width, s.MarginTop, s.MarginBottom, s.Align, family(s.FontFamily), s.FontSize, lh(s.LineHeight))
	if color != "" {
		css += " color: " + color + ";"
	}
	return template.CSS(css)
}

func studentCollegeCSS(doc *certificate.Document, intro certificate.ResolvedStyle, minimal bool) template.CSS {
	// 学生院校行的默认字号小于介绍语，但显式设置的介绍语字号会覆盖它。
	size := 14
	marginTop := 4
	color := ""
	if minimal {
		size = 16
		marginTop = 8
		color = " color: #6b7280;"
	}
	if doc.Styles.Intro.FontSize > 0 {
		size = doc.Styles.Intro.FontSize
	}
	return template.CSS(fmt.Sprintf(
		"font-family: %s; font-size: %dpx; text-align: %s; margin-top: %dpx;%s",
		family(intro.FontFamily), size, intro.Align, marginTop, color))
}

func eventLineCSS(intro certificate.ResolvedStyle, minimal bool) template.CSS {
	margin := "10px 0"
	color := ""
	if minimal {
		margin = "15px 0"
		color = " color: #6b7280;"
	}
	return template.CSS(fmt.Sprintf(
		"font-family: %s; font-size: %dpx; text-align: %s; margin: %s;%s",
		family(intro.FontFamily), intro.FontSize, intro.Align, margin, color))
}

func textBlockCSS(b certificate.TextBlock, docFont string) template.CSS {
	align := b.Align
	switch align {
	case "left", "center", "right":
	default:
		align = "left"
	}
	weight := 400
	if b.Bold {
		weight = 700
	}
	decoration := "none"
	if b.Underline {
		decoration = "underline"
	}
	fontSize := ""
	if b.FontSize > 0 {
		fontSize = strconv.Itoa(b.FontSize) + "px"
	}
	lineHeight := ""
	if b.LineHeight > 0 {
		lineHeight = lh(b.LineHeight)
	}
	width := ""
	if b.Width > 0 {
		width = strconv.Itoa(b.Width) + "%"
	}
	fontFamily := b.FontFamily
	if fontFamily == "" {
		fontFamily = docFont
	}
	if fontFamily == "" {
		fontFamily = "Arial"
	}
	marginLeft, marginRight := "auto", "auto"
	if align == "left" {
		marginLeft = "0"
	}
	if align == "right" {
		marginRight = "0"
	}
	return template.CSS(fmt.Sprintf(
		"text-align:%s;font-weight:%d;text-decoration:%s;font-size:%s;line-height:%s;width:%s;margin-left:%s;margin-right:%s;font-family:%s;",
		align, weight, decoration, fontSize, lineHeight, width, marginLeft, marginRight, fontFamily))
}

// minimalColor 只在 Minimal 变体下给文本块加颜色声明；
// Direct 变体的配色跟随背景图，不写 color。
func minimalColor(minimal bool, color string) string {
	if minimal {
		return color
	}
	return ""
}

func family(f string) string {
	if f == "" {
		return "inherit"
	}
	return f
}

func lh(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// scaledPx 返回缩放后的像素值字符串，保留非整数（如 14.4）。
func scaledPx(v, min float64) string {
	if v < min {
		v = min
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var commonGoogleFonts = regexp.MustCompile(`(?i)^(Roboto|Poppins|Merriweather|Montserrat)$`)

// fontLinks 从各区域配置的字体族构造 Google Fonts 引入标签。
// 常用字体排前，其余按出现顺序去重；没有配置字体时返回空。
func fontLinks(doc *certificate.Document) template.HTML {
	raw := []string{
		doc.Styles.College.FontFamily,
		doc.Styles.CollegeDesc.FontFamily,
		doc.Styles.Title.FontFamily,
		doc.Styles.Name.FontFamily,
		doc.Styles.Intro.FontFamily,
		doc.Styles.EventDesc.FontFamily,
		doc.Styles.Signatory.FontFamily,
	}

	var families []string
	for _, f := range raw {
		if f == "" {
			continue
		}
		f = strings.SplitN(f, ",", 2)[0]
		f = strings.Trim(strings.TrimSpace(f), `"'`)
		if f != "" {
			families = append(families, f)
		}
	}
	if len(families) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(families))
	var ordered []string
	appendUnique := func(f string) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		ordered = append(ordered, f)
	}
	for _, f := range families {
		if commonGoogleFonts.MatchString(f) {
			appendUnique(f)
		}
	}
	for _, f := range families {
		if !commonGoogleFonts.MatchString(f) {
			appendUnique(f)
		}
	}

	parts := make([]string, 0, len(ordered))
	for _, f := range ordered {
		parts = append(parts, "family="+url.QueryEscape(f)+":wght@300;400;600;700;800")
	}
	href := "https://fonts.googleapis.com/css2?" + strings.Join(parts, "&") + "&display=swap"
	return template.HTML(
		"\n" + `<link rel="preconnect" href="https://fonts.googleapis.com">` +
			"\n" + `<link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>` +
			"\n" + `<link href="` + href + `" rel="stylesheet">`)
}
