package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ecertify/internal/api/middleware"
	"ecertify/internal/certificate"
	"ecertify/internal/database"
	"ecertify/internal/layout"
	"ecertify/internal/pdf"
	"ecertify/internal/storage"
	"ecertify/internal/tasks"
)

// CertificateHandler 负责处理证书的增删改查、预览与导出。
type CertificateHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	storage     *storage.Client
	engine      *pdf.Engine
	maxBulk     int
}

// NewCertificateHandler 构造 CertificateHandler。
func NewCertificateHandler(db *gorm.DB, asynqClient *asynq.Client, storageClient *storage.Client, engine *pdf.Engine, maxBulk int) *CertificateHandler {
	if maxBulk <= 0 {
		maxBulk = 200
	}
	return &CertificateHandler{
		db:          db,
		asynqClient: asynqClient,
		storage:     storageClient,
		engine:      engine,
		maxBulk:     maxBulk,
	}
}

var (
	errInvalidCertificateID = errors.New("invalid certificate id")
	errNotOwner             = errors.New("certificate belongs to another user")
)

type certificateListItem struct {
	ID           uint      `json:"id"`
	StudentName  string    `json:"student_name"`
	CollegeName  string    `json:"college_name"`
	EventName    string    `json:"event_name"`
	TemplateKey  string    `json:"template_key"`
	Status       string    `json:"status"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type certificateResponse struct {
	ID           uint           `json:"id"`
	Content      datatypes.JSON `json:"content"`
	Status       string         `json:"status"`
	PdfObjectKey string         `json:"pdf_object_key,omitempty"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateCertificates 保存证书。文档里带 students 列表时按收件人
// 扇出，一人一张；否则按单个 studentName 建一张。
func (h *CertificateHandler) CreateCertificates(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var doc certificate.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	recipients := doc.Students
	if len(recipients) == 0 {
		if strings.TrimSpace(doc.StudentName) == "" {
			BadRequest(c, "studentName or students is required")
			return
		}
		recipients = []certificate.Student{{Name: doc.StudentName}}
	}
	if len(recipients) > h.maxBulk {
		BadRequest(c, fmt.Sprintf("too many recipients, limit is %d", h.maxBulk))
		return
	}

	// 空名字的签名人在落库前剔除，渲染端不再需要判空。
	kept := doc.Signatories[:0]
	for _, s := range doc.Signatories {
		if strings.TrimSpace(s.Name) != "" {
			kept = append(kept, s)
		}
	}
	doc.Signatories = kept

	ctx := c.Request.Context()
	created := make([]certificateResponse, 0, len(recipients))

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, student := range recipients {
			perDoc := doc
			perDoc.StudentName = student.Name
			// 每张证书只保留自己那位收件人，邮箱、课程等字段
			// 留在文档里供后续分发使用。
			perDoc.Students = []certificate.Student{student}

			content, err := json.Marshal(&perDoc)
			if err != nil {
				return fmt.Errorf("marshal certificate content: %w", err)
			}

			cert := database.Certificate{
				StudentName: perDoc.StudentName,
				CollegeName: perDoc.CollegeName,
				EventName:   perDoc.EventName,
				TemplateKey: perDoc.TemplateKey,
				Content:     datatypes.JSON(content),
				UserID:      userID,
				Status:      database.StatusDraft,
			}
			if err := tx.Create(&cert).Error; err != nil {
				return err
			}
			created = append(created, newCertificateResponse(cert))
		}
		return nil
	})
	if err != nil {
		Internal(c, "failed to create certificates")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	for _, item := range created {
		if task, err := tasks.NewThumbnailRefreshTask(item.ID, correlationID); err == nil {
			_, _ = h.asynqClient.Enqueue(task, asynq.MaxRetry(2))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"items": created})
}

// ListCertificates 列出用户全部证书。
func (h *CertificateHandler) ListCertificates(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var certs []database.Certificate
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&certs).Error; err != nil {
		Internal(c, "failed to list certificates")
		return
	}

	items := make([]certificateListItem, 0, len(certs))
	for _, cert := range certs {
		items = append(items, certificateListItem{
			ID:           cert.ID,
			StudentName:  cert.StudentName,
			CollegeName:  cert.CollegeName,
			EventName:    cert.EventName,
			TemplateKey:  cert.TemplateKey,
			Status:       cert.Status,
			ThumbnailURL: cert.ThumbnailURL,
			CreatedAt:    cert.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetCertificate 返回指定 ID 的证书。
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	cert, err := h.getCertificateForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCertificateResponse(*cert))
}

// UpdateCertificate 局部更新证书文档：请求体里出现的键覆盖存量
// 文档的对应键，没出现的键保持原值。
func (h *CertificateHandler) UpdateCertificate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}

	cert, err := h.getCertificateForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	merged := map[string]json.RawMessage{}
	if len(cert.Content) > 0 {
		if err := json.Unmarshal(cert.Content, &merged); err != nil {
			Internal(c, "failed to decode certificate")
			return
		}
	}
	for key, value := range patch {
		merged[key] = value
	}

	content, err := json.Marshal(merged)
	if err != nil {
		Internal(c, "failed to encode certificate")
		return
	}

	var doc certificate.Document
	if err := json.Unmarshal(content, &doc); err != nil {
		BadRequest(c, "merged document is invalid")
		return
	}

	ctx := c.Request.Context()
	updates := map[string]any{
		"content":      datatypes.JSON(content),
		"student_name": doc.StudentName,
		"college_name": doc.CollegeName,
		"event_name":   doc.EventName,
		"template_key": doc.TemplateKey,
	}
	if err := h.db.WithContext(ctx).Model(cert).Updates(updates).Error; err != nil {
		Internal(c, "failed to update certificate")
		return
	}

	if err := h.db.WithContext(ctx).First(cert, cert.ID).Error; err != nil {
		Internal(c, "failed to reload certificate")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	if task, err := tasks.NewThumbnailRefreshTask(cert.ID, correlationID); err == nil {
		_, _ = h.asynqClient.Enqueue(task, asynq.MaxRetry(2))
	}

	c.JSON(http.StatusOK, newCertificateResponse(*cert))
}

// DeleteCertificate 删除指定证书及其导出产物。
func (h *CertificateHandler) DeleteCertificate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	cert, err := h.getCertificateForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Delete(&database.Certificate{}, cert.ID).Error; err != nil {
		Internal(c, "failed to delete certificate")
		return
	}

	if cert.PdfUrl != "" {
		_ = h.storage.DeleteObject(ctx, cert.PdfUrl)
	}
	_ = h.storage.DeleteObject(ctx, storage.ThumbnailObjectKey(userID, cert.ID))

	c.Status(http.StatusNoContent)
}

// DownloadCertificate 同步渲染并以附件返回 PDF。
// engine=raster 走截图打包管线，默认走浏览器打印管线。
func (h *CertificateHandler) DownloadCertificate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	cert, err := h.getCertificateForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	doc, err := decodeCertificateDocument(cert)
	if err != nil {
		Internal(c, "failed to decode certificate")
		return
	}

	engine := c.Query("engine")
	orientation := rasterSafeOrientation(engine, layout.ParseOrientation(c.Query("orientation")))
	data, err := h.renderDocumentPDF(c.Request.Context(), doc, orientation, engine)
	if err != nil {
		h.replyRenderError(c, err)
		return
	}

	idString := strconv.FormatUint(uint64(cert.ID), 10)
	serveInlinePDF(c, data, layout.DownloadFilename(idString, orientation))
}

// PreviewCertificate 渲染请求体里的临时文档并返回 PDF，
// 不落库，供前端在保存前预览导出效果。
func (h *CertificateHandler) PreviewCertificate(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	var doc certificate.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	engine := c.Query("engine")
	orientation := rasterSafeOrientation(engine, layout.ParseOrientation(c.Query("orientation")))
	data, err := h.renderDocumentPDF(c.Request.Context(), &doc, orientation, engine)
	if err != nil {
		h.replyRenderError(c, err)
		return
	}

	serveInlinePDF(c, data, layout.DownloadFilename("", orientation))
}

// PreviewCertificateHTML 返回编译后的 HTML。editable=true 时姓名区域
// 渲染为输入框，其余版面与导出产物完全一致。
func (h *CertificateHandler) PreviewCertificateHTML(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	var doc certificate.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	editable := c.Query("editable") == "true"
	html, err := layout.CompileWithOptions(&doc, layout.Options{EditableName: editable})
	if err != nil {
		Internal(c, "failed to compile certificate")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// ExportCertificate 将导出任务入队并立即返回 202。
func (h *CertificateHandler) ExportCertificate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	cert, err := h.getCertificateForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	engine := c.Query("engine")
	orientation := string(rasterSafeOrientation(engine, layout.ParseOrientation(c.Query("orientation"))))
	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewCertificateExportTask(cert.ID, orientation, engine, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue certificate export")
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(cert).
		Update("status", database.StatusExporting).Error; err != nil {
		Internal(c, "failed to update certificate status")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "certificate export request accepted",
		"task_id": info.ID,
	})
}

// GetDownloadLink 生成已导出 PDF 的预签名下载链接。
func (h *CertificateHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	cert, err := h.getCertificateForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	if cert.PdfUrl == "" {
		Conflict(c, "pdf not ready")
		return
	}

	orientation := layout.ParseOrientation(c.Query("orientation"))
	idString := strconv.FormatUint(uint64(cert.ID), 10)
	filename := layout.DownloadFilename(idString, orientation)

	signedURL, err := h.storage.GenerateDownloadURL(c.Request.Context(), cert.PdfUrl, filename, 5*time.Minute)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *CertificateHandler) renderDocumentPDF(ctx context.Context, doc *certificate.Document, orientation layout.Orientation, engine string) ([]byte, error) {
	html, err := layout.Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("compile certificate layout: %w", err)
	}

	if engine == "raster" {
		raster, err := h.engine.RenderRaster(ctx, html)
		if err != nil {
			return nil, err
		}
		return pdf.PackageRaster(raster)
	}
	return h.engine.RenderPDF(ctx, html, orientation)
}

// rasterSafeOrientation 在入口归一化方向参数：栅格管线只截纵向画布，
// 横向请求若不归一会把纵向截图拉伸进横向页。
func rasterSafeOrientation(engine string, o layout.Orientation) layout.Orientation {
	if engine == "raster" {
		return layout.Portrait
	}
	return o
}

// getCertificateForUser 先按 ID 查找，再做归属校验：
// 不存在返回 404 语义的 ErrRecordNotFound，存在但不属于当前用户
// 返回 errNotOwner（403），两者不混淆。
func (h *CertificateHandler) getCertificateForUser(ctx context.Context, idParam string, userID uint) (*database.Certificate, error) {
	certID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidCertificateID
	}

	var cert database.Certificate
	if err := h.db.WithContext(ctx).First(&cert, uint(certID)).Error; err != nil {
		return nil, err
	}
	if cert.UserID != userID {
		return nil, errNotOwner
	}

	return &cert, nil
}

func (h *CertificateHandler) replyLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidCertificateID):
		BadRequest(c, "invalid certificate id")
	case errors.Is(err, errNotOwner):
		Forbidden(c, "certificate belongs to another user")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "certificate not found")
	default:
		Internal(c, "failed to query certificate")
	}
}

func (h *CertificateHandler) replyRenderError(c *gin.Context, err error) {
	if errors.Is(err, pdf.ErrEngineUnavailable) {
		ServiceUnavailable(c, "rendering engine not available")
		return
	}
	Internal(c, "failed to render certificate")
}

func serveInlinePDF(c *gin.Context, data []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

func decodeCertificateDocument(cert *database.Certificate) (*certificate.Document, error) {
	var doc certificate.Document
	if err := json.Unmarshal(cert.Content, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func newCertificateResponse(cert database.Certificate) certificateResponse {
	return certificateResponse{
		ID:           cert.ID,
		Content:      cert.Content,
		Status:       cert.Status,
		PdfObjectKey: cert.PdfUrl,
		ThumbnailURL: cert.ThumbnailURL,
		CreatedAt:    cert.CreatedAt,
		UpdatedAt:    cert.UpdatedAt,
	}
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
