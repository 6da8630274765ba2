package layout

import (
	"strings"
	"testing"

	"ecertify/internal/certificate"
)

func compileOrFail(t *testing.T, doc *certificate.Document) string {
	t.Helper()
	html, err := Compile(doc)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return html
}

func TestCompileIsDeterministic(t *testing.T) {
	doc := &certificate.Document{
		StudentName: "李华",
		CollegeName: "Engineering College",
		EventName:   "Tech Summit 2026",
		TemplateKey: "minimal",
		Signatories: []certificate.Signatory{{Name: "Dean"}},
		TextBlocks:  []certificate.TextBlock{{Label: "Grade", Value: "A"}},
	}
	first := compileOrFail(t, doc)
	second := compileOrFail(t, doc)
	if first != second {
		t.Fatal("same document compiled to different output")
	}
}

func TestCompileCanvasSize(t *testing.T) {
	html := compileOrFail(t, &certificate.Document{StudentName: "A"})
	if !strings.Contains(html, "width: 794px") || !strings.Contains(html, "height: 1123px") {
		t.Error("canvas is not 794x1123")
	}
	if !strings.Contains(html, "@page { size: A4; margin: 0 }") {
		t.Error("missing @page rule")
	}
}

func TestCompileDirectScaledFonts(t *testing.T) {
	// 直排版式：校名 18*0.8=14.4px，姓名 44*0.7 保留浮点尾数。
	html := compileOrFail(t, &certificate.Document{StudentName: "A", CollegeName: "C"})
	if !strings.Contains(html, "font-size: 14.4px") {
		t.Error("direct college font not scaled to 14.4px")
	}
	if !strings.Contains(html, "font-size: 30.799999999999997px") {
		t.Error("direct name font not scaled from 44px")
	}
}

func TestCompileDirectScaleFloors(t *testing.T) {
	html, err := Compile(&certificate.Document{
		StudentName: "A",
		CollegeName: "C",
		Styles: certificate.StyleSet{
			College: certificate.StyleSpec{FontSize: 10},
			Name:    certificate.StyleSpec{FontSize: 10},
		},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// 0.8*10=8 < 12，0.7*10=7 < 20，都应钳到下限。
	if !strings.Contains(html, "font-size: 12px") {
		t.Error("college font not floored at 12px")
	}
	if !strings.Contains(html, "font-size: 20px") {
		t.Error("name font not floored at 20px")
	}
}

func TestCompileMinimalVariant(t *testing.T) {
	html := compileOrFail(t, &certificate.Document{
		StudentName: "A",
		CollegeName: "C",
		TemplateKey: "minimal",
	})
	if !strings.Contains(html, "border: 2px solid #1f2937") {
		t.Error("minimal border missing")
	}
	// minimal 校名不缩放，用默认 20px。
	if !strings.Contains(html, "font-size: 20px") {
		t.Error("minimal college font should be 20px")
	}
	if strings.Contains(html, "background-image") {
		t.Error("minimal variant must not render a background image")
	}
}

func TestCompileMinimalBlockColors(t *testing.T) {
	// 极简版式的院系简介、介绍语、活动描述块带固定配色；
	// 直排版式跟随背景图，不写 color 声明。
	doc := &certificate.Document{
		StudentName:        "A",
		CollegeName:        "C",
		CollegeDescription: "Dept of CS",
		EventDescription:   "Annual hackathon",
		TemplateKey:        "minimal",
	}
	html := compileOrFail(t, doc)
	if !strings.Contains(html, "color: #6b7280;") {
		t.Error("minimal college description missing its color")
	}
	if strings.Count(html, "color: #374151;") < 2 {
		t.Error("minimal intro/event description missing their color")
	}

	doc.TemplateKey = "classic"
	html = compileOrFail(t, doc)
	if strings.Contains(html, "color: #6b7280;") || strings.Contains(html, "color: #374151;") {
		t.Error("direct variant must not color the text blocks")
	}
}

func TestCompileDirectBackground(t *testing.T) {
	withBg := compileOrFail(t, &certificate.Document{
		StudentName:   "A",
		BackgroundURL: "https://cdn.example.com/bg.png",
	})
	if !strings.Contains(withBg, "background-image: url(https://cdn.example.com/bg.png)") {
		t.Error("background url not rendered")
	}

	withoutBg := compileOrFail(t, &certificate.Document{StudentName: "A"})
	if !strings.Contains(withoutBg, "background-image: none") {
		t.Error("background should fall back to none")
	}
}

func TestCompileHeaderModes(t *testing.T) {
	base := certificate.Document{StudentName: "A", CollegeName: "C"}

	noLogo := compileOrFail(t, &base)
	if strings.Contains(noLogo, `class="logo"`) {
		t.Error("no-logo header should not render logo images")
	}
	if !strings.Contains(noLogo, "justify-content:center;") {
		t.Error("no-logo header should center the college name")
	}

	one := base
	one.Logos = []string{"https://cdn/a.png"}
	oneLogo := compileOrFail(t, &one)
	if strings.Count(oneLogo, `class="logo"`) != 1 {
		t.Error("single-logo header should render exactly one logo")
	}
	if !strings.Contains(oneLogo, "flex-direction:column") {
		t.Error("single-logo header should stack vertically")
	}

	two := base
	two.Logos = []string{"https://cdn/a.png", "https://cdn/b.png", "https://cdn/c.png"}
	twoLogo := compileOrFail(t, &two)
	if strings.Count(twoLogo, `class="logo"`) != 2 {
		t.Error("header renders at most two logos")
	}
}

func TestCompileTitlePrecedence(t *testing.T) {
	img := compileOrFail(t, &certificate.Document{
		StudentName:         "A",
		CustomTitleImageURL: "https://cdn/title.png",
		TitleOverride:       "IGNORED",
	})
	if !strings.Contains(img, `class="title-image"`) {
		t.Error("title image should win over text")
	}
	if strings.Contains(img, "IGNORED") {
		t.Error("title text must not render alongside title image")
	}

	override := compileOrFail(t, &certificate.Document{StudentName: "A", TitleOverride: "AWARD OF MERIT"})
	if !strings.Contains(override, "AWARD OF MERIT") {
		t.Error("title override not rendered")
	}

	legacy := compileOrFail(t, &certificate.Document{StudentName: "A", EventType: "custom", CustomTitleText: "EXCELLENCE"})
	if !strings.Contains(legacy, "CERTIFICATE OF EXCELLENCE") {
		t.Error("legacy custom title not rendered")
	}

	plain := compileOrFail(t, &certificate.Document{StudentName: "A"})
	if !strings.Contains(plain, ">CERTIFICATE</h2>") {
		t.Error("default title not rendered")
	}
}

func TestCompileSignatoryCapAndFallbacks(t *testing.T) {
	many := make([]certificate.Signatory, 6)
	for i := range many {
		many[i] = certificate.Signatory{Name: "S", Designation: "D"}
	}

	direct := compileOrFail(t, &certificate.Document{StudentName: "A", Signatories: many})
	if got := strings.Count(direct, ">S</p>"); got != 4 {
		t.Errorf("direct variant rendered %d signatories, want 4", got)
	}

	minimal := compileOrFail(t, &certificate.Document{StudentName: "A", TemplateKey: "minimal", Signatories: many})
	if got := strings.Count(minimal, ">S</p>"); got != 2 {
		t.Errorf("minimal variant rendered %d signatories, want 2", got)
	}

	fallback := compileOrFail(t, &certificate.Document{
		StudentName: "A",
		Signatories: []certificate.Signatory{{}},
	})
	if !strings.Contains(fallback, ">Signatory</p>") || !strings.Contains(fallback, ">Designation</p>") {
		t.Error("empty signatory fields should fall back to placeholders")
	}

	dept := compileOrFail(t, &certificate.Document{
		StudentName: "A",
		Signatories: []certificate.Signatory{{Name: "N", Designation: "Dean", Department: "CS"}},
	})
	if !strings.Contains(dept, ">Dean, CS</p>") {
		t.Error("designation and department should join with a comma")
	}
}

func TestCompileTextBlocks(t *testing.T) {
	html := compileOrFail(t, &certificate.Document{
		StudentName: "A",
		FontFamily:  "Merriweather",
		TextBlocks: []certificate.TextBlock{
			{Label: "Grade", Value: "A+", Bold: true},
			{}, // 空文本块不渲染
			{Value: "Second line", Align: "right"},
		},
	})
	if got := strings.Count(html, `class="text-block"`); got != 2 {
		t.Errorf("rendered %d text blocks, want 2", got)
	}
	if !strings.Contains(html, "font-weight:700") {
		t.Error("bold text block should use weight 700")
	}
	if !strings.Contains(html, "font-family:Merriweather") {
		t.Error("text block should inherit document font")
	}
	if !strings.Contains(html, "text-align:right") || !strings.Contains(html, "margin-right:0") {
		t.Error("right-aligned block should pin to the right margin")
	}
}

func TestCompileEventLine(t *testing.T) {
	html := compileOrFail(t, &certificate.Document{StudentName: "A", EventName: "Hackathon"})
	if !strings.Contains(html, "Hackathon • ") {
		t.Error("event line should render name with separator")
	}

	empty := compileOrFail(t, &certificate.Document{StudentName: "A"})
	if strings.Contains(empty, " • ") {
		t.Error("event separator must not render without an event name")
	}
}

func TestCompileEditableName(t *testing.T) {
	doc := &certificate.Document{StudentName: "李华"}

	editable, err := CompileWithOptions(doc, Options{EditableName: true})
	if err != nil {
		t.Fatalf("CompileWithOptions: %v", err)
	}
	if !strings.Contains(editable, `<input id="student-name" value="李华"`) {
		t.Error("editable preview should render the name as an input")
	}
	if !strings.Contains(editable, "min-width: 200px") {
		t.Error("editable input should carry the transparent input styles")
	}

	fixed := compileOrFail(t, doc)
	if strings.Contains(fixed, "<input") {
		t.Error("export output must not contain form controls")
	}
}

func TestCompileIntroDefaults(t *testing.T) {
	direct := compileOrFail(t, &certificate.Document{StudentName: "A"})
	if !strings.Contains(direct, "This is to certify that Mr./Ms.") ||
		!strings.Contains(direct, "has participated in the event") {
		t.Error("direct intro defaults missing")
	}

	minimal := compileOrFail(t, &certificate.Document{StudentName: "A", TemplateKey: "minimal"})
	if !strings.Contains(minimal, "has successfully completed the program") {
		t.Error("minimal intro defaults missing")
	}

	custom := compileOrFail(t, &certificate.Document{StudentName: "A", IntroLeft: "We hereby certify"})
	if !strings.Contains(custom, "We hereby certify") {
		t.Error("explicit intro text should win over defaults")
	}
}

func TestCompileFontLinks(t *testing.T) {
	html := compileOrFail(t, &certificate.Document{
		StudentName: "A",
		Styles: certificate.StyleSet{
			Title: certificate.StyleSpec{FontFamily: `"Playfair Display", serif`},
			Name:  certificate.StyleSpec{FontFamily: "Poppins"},
			Intro: certificate.StyleSpec{FontFamily: "Poppins"},
		},
	})
	if !strings.Contains(html, "fonts.googleapis.com/css2?") {
		t.Fatal("google fonts link missing")
	}
	// 常用字体排在前，引号与后备字体族被剥掉，重复项去重。
	if !strings.Contains(html, "family=Poppins:wght@300;400;600;700;800&family=Playfair+Display:wght@300;400;600;700;800") {
		t.Errorf("unexpected font link ordering: %s", html)
	}
	if strings.Count(html, "family=Poppins") != 1 {
		t.Error("duplicate font families should be deduplicated")
	}

	bare := compileOrFail(t, &certificate.Document{StudentName: "A"})
	if strings.Contains(bare, "fonts.googleapis.com") {
		t.Error("no fonts configured should emit no font links")
	}
}

func TestDownloadFilename(t *testing.T) {
	if got := DownloadFilename("42", Landscape); got != "certificate-42-landscape.pdf" {
		t.Errorf("DownloadFilename = %q", got)
	}
	if got := DownloadFilename("", Portrait); got != "certificate-preview-portrait.pdf" {
		t.Errorf("DownloadFilename preview = %q", got)
	}
}

func TestParseOrientation(t *testing.T) {
	if ParseOrientation("landscape") != Landscape {
		t.Error("landscape not parsed")
	}
	for _, s := range []string{"", "portrait", "diagonal"} {
		if ParseOrientation(s) != Portrait {
			t.Errorf("%q should fall back to portrait", s)
		}
	}

	w, h := Landscape.PageSize()
	if w != 1123 || h != 794 {
		t.Errorf("landscape page size = %dx%d", w, h)
	}
}
