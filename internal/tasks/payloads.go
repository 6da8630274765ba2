package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCertificateExport = "certificate:export"
	TypeThumbnailRefresh  = "certificate:thumbnail"
)

// CertificateExportPayload 描述导出一张证书 PDF 所需的最小信息。
type CertificateExportPayload struct {
	CertificateID uint   `json:"certificate_id"`
	Orientation   string `json:"orientation"`
	Engine        string `json:"engine"`
	CorrelationID string `json:"correlation_id"`
}

// ThumbnailRefreshPayload 描述刷新证书缩略图的任务参数。
type ThumbnailRefreshPayload struct {
	CertificateID uint   `json:"certificate_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewCertificateExportTask 构造一个新的证书导出任务。
func NewCertificateExportTask(id uint, orientation, engine, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CertificateExportPayload{
		CertificateID: id,
		Orientation:   orientation,
		Engine:        engine,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCertificateExport, payload), nil
}

// NewThumbnailRefreshTask 构造一个刷新缩略图的任务。
func NewThumbnailRefreshTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ThumbnailRefreshPayload{
		CertificateID: id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeThumbnailRefresh, payload), nil
}
