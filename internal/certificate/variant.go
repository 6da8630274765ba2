package certificate

// Variant 是实际存在的两种版式。对外暴露的 templateKey 有很多取值
// （classic、elegant、modern…），但渲染只有两种形态，其余 key 一律
// 归一化为 Direct。
type Variant int

const (
	// VariantDirect 无边框版式：背景图全幅铺满，内容浮于其上。
	VariantDirect Variant = iota
	// VariantMinimal 带边框的盒式版式，白底居中。
	VariantMinimal
)

// ParseVariant 把 templateKey 归一化为 Variant。只在入口处做一次，
// 编译器内部不再出现 templateKey 字符串。
func ParseVariant(templateKey string) Variant {
	if templateKey == "minimal" {
		return VariantMinimal
	}
	return VariantDirect
}

// Variant 返回文档的版式。
func (d *Document) Variant() Variant {
	return ParseVariant(d.TemplateKey)
}

func (v Variant) String() string {
	if v == VariantMinimal {
		return "minimal"
	}
	return "direct"
}
