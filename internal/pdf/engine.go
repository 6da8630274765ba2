package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"ecertify/internal/layout"
)

// ErrEngineUnavailable 表示宿主机上找不到可用的 Chromium。
// 这是部署问题而非数据问题，调用方需要能把它与一般渲染失败区分开。
var ErrEngineUnavailable = errors.New("rendering engine not found")

// Engine 封装无头浏览器渲染。每次导出独占一个浏览器进程，
// 并发总量由信号量限制；所有退出路径都会释放进程与句柄。
type Engine struct {
	logger        *slog.Logger
	sem           chan struct{}
	browserBin    string
	allowDownload bool
	timeout       time.Duration
}

// NewEngine 构造渲染引擎。maxConcurrent 是同时存活的浏览器进程上限；
// allowDownload 为 false 时只使用系统里已有的浏览器。
func NewEngine(logger *slog.Logger, maxConcurrent int, browserBin string, allowDownload bool, timeout time.Duration) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		logger:        logger,
		sem:           make(chan struct{}, maxConcurrent),
		browserBin:    browserBin,
		allowDownload: allowDownload,
		timeout:       timeout,
	}
}

func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	<-e.sem
}

// RenderPDF 把编译好的证书 HTML 通过打印管线输出为 PDF 字节。
// 背景图与背景色会出现在输出里；页面尺寸由画布的 @page 规则决定。
func (e *Engine) RenderPDF(ctx context.Context, html string, orientation layout.Orientation) (_ []byte, err error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	page, cleanup, err := e.openPage(html)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	params := &proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      float64Ptr(8.27),
		PaperHeight:     float64Ptr(11.69),
		MarginTop:       float64Ptr(0),
		MarginBottom:    float64Ptr(0),
		MarginLeft:      float64Ptr(0),
		MarginRight:     float64Ptr(0),
	}
	if orientation == layout.Landscape {
		// 横向时交给打印参数换向；CSS @page 固定为纵向 A4，
		// preferCSSPageSize 会压掉 landscape，因此仅纵向启用。
		params.Landscape = true
	} else {
		params.PreferCSSPageSize = true
	}

	reader, err := page.PDF(params)
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

// RenderRaster 以 2 倍像素密度截取证书画布，返回 PNG 字节，
// 供打包器装入与画布等大的 PDF 页（栅格导出路径）。
func (e *Engine) RenderRaster(ctx context.Context, html string) (_ []byte, err error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	page, cleanup, err := e.openPage(html)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             layout.CanvasWidth,
		Height:            layout.CanvasHeight,
		DeviceScaleFactor: 2,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set device metrics: %w", err)
	}

	return e.captureCanvas(page, proto.PageCaptureScreenshotFormatPng, 0)
}

// RenderThumbnail 截取 JPEG 缩略图，用于列表预览。
func (e *Engine) RenderThumbnail(ctx context.Context, html string, quality int) (_ []byte, err error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	page, cleanup, err := e.openPage(html)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return e.captureCanvas(page, proto.PageCaptureScreenshotFormatJpeg, quality)
}

func (e *Engine) captureCanvas(page *rod.Page, format proto.PageCaptureScreenshotFormat, quality int) ([]byte, error) {
	element, err := page.Timeout(5 * time.Second).Element(".certificate")
	if err == nil {
		if data, shotErr := element.Screenshot(format, quality); shotErr == nil {
			return data, nil
		}
	}

	data, err := page.Screenshot(false, fallbackScreenshotRequest(format, quality))
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}

// fallbackScreenshotRequest 构造整页截图降级时的请求：裁剪到画布
// 尺寸，页面再长也不会截出超出证书的内容。
func fallbackScreenshotRequest(format proto.PageCaptureScreenshotFormat, quality int) *proto.PageCaptureScreenshot {
	req := &proto.PageCaptureScreenshot{
		Format: format,
		Clip: &proto.PageViewport{
			Width:  layout.CanvasWidth,
			Height: layout.CanvasHeight,
			Scale:  1,
		},
	}
	if format == proto.PageCaptureScreenshotFormatJpeg {
		req.Quality = intPtr(quality)
	}
	return req
}

// openPage 启动浏览器并载入文档。返回的 cleanup 在任何路径上都必须
// 调用，否则会泄漏浏览器进程。
func (e *Engine) openPage(html string) (_ *rod.Page, cleanup func(), err error) {
	cleanup = func() {}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	switch {
	case e.browserBin != "":
		launch = launch.Bin(e.browserBin)
	default:
		path, ok := launcher.LookPath()
		if !ok && !e.allowDownload {
			return nil, cleanup, ErrEngineUnavailable
		}
		if ok {
			launch = launch.Bin(path)
		}
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, cleanup, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Timeout(e.timeout)
	if err := browser.Connect(); err != nil {
		return nil, cleanup, fmt.Errorf("connect browser: %w", err)
	}
	cleanup = func() {
		_ = browser.Close()
		launch.Cleanup()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, cleanup, fmt.Errorf("create page: %w", err)
	}
	prevCleanup := cleanup
	cleanup = func() {
		_ = page.Close()
		prevCleanup()
	}

	page = page.Timeout(e.timeout)
	if err := page.SetDocumentContent(html); err != nil {
		return nil, cleanup, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, cleanup, fmt.Errorf("wait load: %w", err)
	}

	e.waitAssetsSettled(page)
	return page, cleanup, nil
}

// waitAssetsSettled 等待所有图片与字体就绪。加载失败的图片与加载
// 成功的一视同仁（settled 即可），整体再加一层兜底超时，保证坏掉的
// 资源 URL 不会饿死导出，也不会把空白占位烤进 PDF。
func (e *Engine) waitAssetsSettled(page *rod.Page) {
	script := `() => {
	  const settle = img => (img.complete ? Promise.resolve(true) : new Promise(resolve => {
	    img.onload = img.onerror = () => resolve(true);
	  }));
	  const images = Promise.all(Array.from(document.images).map(settle));
	  const fonts = (document.fonts && document.fonts.ready)
	    ? document.fonts.ready.then(() => true)
	    : Promise.resolve(true);
	  const cap = new Promise(resolve => setTimeout(() => resolve(true), 10000));
	  return Promise.race([Promise.all([images, fonts]).then(() => true), cap]);
	}`
	if _, err := page.Timeout(15 * time.Second).Eval(script); err != nil {
		e.logger.Warn("wait for page assets failed, continue", slog.Any("error", err))
	}
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
