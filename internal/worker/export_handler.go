package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ecertify/internal/certificate"
	"ecertify/internal/database"
	"ecertify/internal/errcode"
	"ecertify/internal/layout"
	"ecertify/internal/metrics"
	"ecertify/internal/pdf"
	"ecertify/internal/storage"
	"ecertify/internal/tasks"
)

// ExportHandler 负责消费证书导出任务：编译版面、无头渲染、
// 上传对象存储并通过 Redis 通知前端。
type ExportHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	redisClient *redis.Client
	engine      *pdf.Engine
	logger      *slog.Logger
}

// NewExportHandler 创建任务处理器。
func NewExportHandler(
	db *gorm.DB,
	storage *storage.Client,
	redisClient *redis.Client,
	engine *pdf.Engine,
	logger *slog.Logger,
) *ExportHandler {
	return &ExportHandler{
		db:          db,
		storage:     storage,
		redisClient: redisClient,
		engine:      engine,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CertificateExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("certificate_id", int(payload.CertificateID)),
	)
	log.Info("Starting certificate export task...")

	var cert database.Certificate
	if err := h.db.WithContext(ctx).First(&cert, payload.CertificateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("certificate not found, skipping task")
			return nil
		}
		log.Error("query certificate failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(cert.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		if err := h.db.WithContext(ctx).Model(&cert).
			Update("status", database.StatusFailed).Error; err != nil {
			log.Error("mark certificate failed status", slog.Any("error", err))
		}

		code := errcode.SystemError
		if errors.Is(retErr, pdf.ErrEngineUnavailable) {
			code = errcode.EngineMissing
		}
		notify := ExportNotifyMessage{
			Status:        "error",
			CertificateID: cert.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     code,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishExportNotify(ctx, cert.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	doc, err := decodeDocument(&cert)
	if err != nil {
		log.Error("decode certificate content failed", slog.Any("error", err))
		return err
	}

	orientation := layout.ParseOrientation(payload.Orientation)
	pdfBytes, err := h.renderPDF(ctx, doc, orientation, payload.Engine)
	if err != nil {
		log.Error("render certificate pdf failed", slog.Any("error", err))
		return err
	}

	objectName := storage.ExportObjectKey(cert.UserID, uuid.NewString())
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{
		"pdf_url": objectName,
		"status":  database.StatusExported,
	}
	if err := h.db.WithContext(ctx).Model(&cert).Updates(update).Error; err != nil {
		log.Error("update certificate failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:        "completed",
		CertificateID: cert.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		PdfObjectKey:  objectName,
	}
	if err := h.publishExportNotify(ctx, cert.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Certificate export task completed successfully.")
	return nil
}

// renderPDF 按请求的管线导出：print 走浏览器打印，raster 先截图
// 再装进与画布等大的 PDF 页。两条管线吃的是同一份编译产物。
func (h *ExportHandler) renderPDF(ctx context.Context, doc *certificate.Document, orientation layout.Orientation, engine string) ([]byte, error) {
	html, err := layout.Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("compile certificate layout: %w", err)
	}

	done := metrics.RenderStarted()
	defer done()

	if engine == "raster" {
		// 栅格管线固定纵向，方向参数只作用于打印管线。
		start := time.Now()
		raster, err := h.engine.RenderRaster(ctx, html)
		metrics.ObserveRender("raster", start, err)
		if err != nil {
			return nil, err
		}
		return pdf.PackageRaster(raster)
	}

	start := time.Now()
	data, err := h.engine.RenderPDF(ctx, html, orientation)
	metrics.ObserveRender("pdf", start, err)
	return data, err
}

func (h *ExportHandler) publishExportNotify(ctx context.Context, userID uint, notify ExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

func decodeDocument(cert *database.Certificate) (*certificate.Document, error) {
	var doc certificate.Document
	if err := json.Unmarshal(cert.Content, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal certificate %d content: %w", cert.ID, err)
	}
	return &doc, nil
}

// ThumbnailHandler 消费缩略图刷新任务，失败只告警不重试通知。
type ThumbnailHandler struct {
	db      *gorm.DB
	storage *storage.Client
	engine  *pdf.Engine
	logger  *slog.Logger
}

// NewThumbnailHandler 创建缩略图处理器。
func NewThumbnailHandler(db *gorm.DB, storage *storage.Client, engine *pdf.Engine, logger *slog.Logger) *ThumbnailHandler {
	return &ThumbnailHandler{db: db, storage: storage, engine: engine, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *ThumbnailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	const (
		thumbnailQuality = 80
		presignTTL       = 7 * 24 * time.Hour
	)

	var payload tasks.ThumbnailRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal thumbnail payload failed", slog.Any("error", err))
		return err
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("certificate_id", int(payload.CertificateID)),
	)

	var cert database.Certificate
	if err := h.db.WithContext(ctx).First(&cert, payload.CertificateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("certificate not found, skipping thumbnail refresh")
			return nil
		}
		return err
	}

	doc, err := decodeDocument(&cert)
	if err != nil {
		return err
	}
	html, err := layout.Compile(doc)
	if err != nil {
		return fmt.Errorf("compile certificate layout: %w", err)
	}

	start := time.Now()
	thumbBytes, err := h.engine.RenderThumbnail(ctx, html, thumbnailQuality)
	metrics.ObserveRender("thumbnail", start, err)
	if err != nil {
		return fmt.Errorf("render thumbnail: %w", err)
	}

	objectName := storage.ThumbnailObjectKey(cert.UserID, cert.ID)
	reader := bytes.NewReader(thumbBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, reader, int64(len(thumbBytes)), "image/jpeg"); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}

	presignedURL, err := h.storage.GeneratePresignedURL(ctx, objectName, presignTTL)
	if err != nil {
		return fmt.Errorf("generate thumbnail presigned url: %w", err)
	}

	if err := h.db.WithContext(ctx).Model(&cert).
		Update("thumbnail_url", presignedURL).Error; err != nil {
		return fmt.Errorf("update certificate thumbnail url: %w", err)
	}

	log.Info("thumbnail refreshed")
	return nil
}
