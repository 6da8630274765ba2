package certificate

import "testing"

func TestParseVariant(t *testing.T) {
	cases := []struct {
		key  string
		want Variant
	}{
		{"minimal", VariantMinimal},
		{"direct", VariantDirect},
		{"", VariantDirect},
		{"classic", VariantDirect},
		{"modern", VariantDirect},
		{"elegant", VariantDirect},
	}
	for _, tc := range cases {
		if got := ParseVariant(tc.key); got != tc.want {
			t.Errorf("ParseVariant(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestResolveFillsEveryField(t *testing.T) {
	regions := []Region{
		RegionCollege, RegionCollegeDesc, RegionTitle, RegionName,
		RegionIntro, RegionEventDesc, RegionSignatory,
	}
	for _, v := range []Variant{VariantDirect, VariantMinimal} {
		for _, r := range regions {
			got := Resolve(StyleSpec{}, v, r)
			if got.FontSize <= 0 {
				t.Errorf("%v/%v: font size not filled", v, r)
			}
			if got.LineHeight <= 0 {
				t.Errorf("%v/%v: line height not filled", v, r)
			}
			if got.Width <= 0 {
				t.Errorf("%v/%v: width not filled", v, r)
			}
			switch got.Align {
			case "left", "center", "right":
			default:
				t.Errorf("%v/%v: align %q not filled", v, r, got.Align)
			}
		}
	}
}

func TestResolveExplicitValuesWin(t *testing.T) {
	mt, mb := 3, 7
	spec := StyleSpec{
		FontFamily:   "Poppins",
		FontSize:     22,
		LineHeight:   1.8,
		Width:        60,
		Align:        "right",
		MarginTop:    &mt,
		MarginBottom: &mb,
	}
	got := Resolve(spec, VariantDirect, RegionIntro)
	if got.FontFamily != "Poppins" || got.FontSize != 22 || got.LineHeight != 1.8 ||
		got.Width != 60 || got.Align != "right" || got.MarginTop != 3 || got.MarginBottom != 7 {
		t.Errorf("explicit spec not honored: %+v", got)
	}
}

func TestResolveRejectsInvalidValues(t *testing.T) {
	neg := -5
	spec := StyleSpec{
		FontSize:   -10,
		LineHeight: -1,
		Align:      "justify",
		MarginTop:  &neg,
	}
	got := Resolve(spec, VariantMinimal, RegionCollege)
	def := DefaultStyle(VariantMinimal, RegionCollege)
	if got != def {
		t.Errorf("invalid spec should fall back to defaults, got %+v want %+v", got, def)
	}
}

func TestMinimalCollegeDefaultsAreConcrete(t *testing.T) {
	// 未设置字号时两种校名区域都要落到具体像素值。
	if got := DefaultStyle(VariantMinimal, RegionCollege).FontSize; got != 20 {
		t.Errorf("minimal college font size = %d, want 20", got)
	}
	if got := DefaultStyle(VariantMinimal, RegionCollegeDesc).FontSize; got != 14 {
		t.Errorf("minimal college desc font size = %d, want 14", got)
	}
}

func TestDocumentTitlePrecedence(t *testing.T) {
	cases := []struct {
		name string
		doc  Document
		want string
	}{
		{
			name: "override wins",
			doc:  Document{TitleOverride: "AWARD OF EXCELLENCE", EventType: "custom", CustomTitleText: "MERIT"},
			want: "AWARD OF EXCELLENCE",
		},
		{
			name: "legacy custom event",
			doc:  Document{EventType: "custom", CustomTitleText: "PARTICIPATION"},
			want: "CERTIFICATE OF PARTICIPATION",
		},
		{
			name: "custom event without text",
			doc:  Document{EventType: "custom"},
			want: "CERTIFICATE",
		},
		{
			name: "default",
			doc:  Document{},
			want: "CERTIFICATE",
		},
	}
	for _, tc := range cases {
		if got := tc.doc.Title(); got != tc.want {
			t.Errorf("%s: Title() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRenderableLogos(t *testing.T) {
	doc := Document{Logos: []string{"", "https://cdn/a.png", "https://cdn/b.png", "https://cdn/c.png"}}
	got := doc.RenderableLogos()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != "https://cdn/a.png" || got[1] != "https://cdn/b.png" {
		t.Errorf("unexpected logos: %v", got)
	}
}

func TestTextBlockText(t *testing.T) {
	cases := []struct {
		block TextBlock
		want  string
	}{
		{TextBlock{Label: "Grade", Value: "A+"}, "Grade A+"},
		{TextBlock{Label: "Grade"}, "Grade"},
		{TextBlock{Value: "A+"}, "A+"},
		{TextBlock{}, ""},
	}
	for _, tc := range cases {
		if got := tc.block.Text(); got != tc.want {
			t.Errorf("Text() = %q, want %q", got, tc.want)
		}
	}
}
