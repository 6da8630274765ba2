package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"ecertify/internal/layout"
)

// px 到 pt 的换算：浏览器画布按 96dpi 取值，PDF 坐标按 72dpi。
const ptPerPx = 72.0 / 96.0

// PackageRaster 把截图得到的 PNG 装进一页 PDF，页面尺寸与证书画布
// 一一对应（794x1123px -> 595.50x842.25pt），图片满幅铺满无边距。
// 栅格管线只截纵向画布，页面因此固定纵向；横向导出走打印管线。
func PackageRaster(raster []byte) ([]byte, error) {
	widthPx, heightPx := layout.Portrait.PageSize()
	widthPt := float64(widthPx) * ptPerPx
	heightPt := float64(heightPx) * ptPerPx

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: widthPt, Ht: heightPt},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("certificate", opts, bytes.NewReader(raster))
	if doc.Err() {
		return nil, fmt.Errorf("register raster image: %w", doc.Error())
	}
	doc.ImageOptions("certificate", 0, 0, widthPt, heightPt, false, opts, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
