package layout

import "fmt"

// 画布是整个系统唯一的逐像素契约：预览与导出都渲染到同一尺寸。
// A4 纵向 @96dpi。历史版本里出现过 1000/900 的高度，均已废弃。
const (
	CanvasWidth  = 794
	CanvasHeight = 1123
)

// Orientation 是导出时的页面方向。横向只在导出边界交换页面尺寸，
// 编译器本身始终按纵向画布排版。
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// ParseOrientation 归一化方向参数，无法识别时回落为纵向。
func ParseOrientation(s string) Orientation {
	if s == string(Landscape) {
		return Landscape
	}
	return Portrait
}

// PageSize 返回该方向下导出页面的像素尺寸。
func (o Orientation) PageSize() (width, height int) {
	if o == Landscape {
		return CanvasHeight, CanvasWidth
	}
	return CanvasWidth, CanvasHeight
}

// DownloadFilename 按约定构造下载文件名：
// certificate-{id|"preview"}-{orientation}.pdf
func DownloadFilename(id string, o Orientation) string {
	if id == "" {
		id = "preview"
	}
	return fmt.Sprintf("certificate-%s-%s.pdf", id, o)
}
