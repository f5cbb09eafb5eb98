// handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"DeliveryDashboard/src/storage"
)

/******************** 附件处理器实现 ********************/

// DatasetAttachmentHandler 把邮件里的数据集附件落盘到数据目录
type DatasetAttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewDatasetAttachmentHandler(subject, dataDir string) *DatasetAttachmentHandler {
	return &DatasetAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *DatasetAttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *DatasetAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// isDatasetFile 数据集附件只接受csv和xlsx
func isDatasetFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".csv" || ext == ".xlsx"
}

// Handle 处理单个邮件，返回保存的数据集文件路径
// 主题不匹配或没有数据集附件时返回空串，不算错误
func (h *DatasetAttachmentHandler) Handle(email *Email, logger *storage.Logger) (string, error) {
	// 检查是否已处理过该邮件
	if h.IsProcessed(email.UID) {
		return "", nil
	}

	// 检查邮件主题是否包含目标关键词
	if !strings.Contains(email.Subject, h.TargetSubject) {
		logger.Debug(fmt.Sprintf("跳过主题不匹配的邮件: %s", email.Subject))
		return "", nil
	}

	logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05")))

	// 确保保存目录存在
	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	// 处理附件，取第一个数据集文件
	savedPath := ""
	for _, attachment := range email.Attachments {
		if !isDatasetFile(attachment.Filename) {
			continue
		}

		filePath := filepath.Join(h.DataDir, attachment.Filename)
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return "", fmt.Errorf("保存附件失败: %w", err)
		}

		logger.Info("数据集附件已保存到: " + filePath)
		savedPath = filePath
		break
	}

	// 有数据集附件才标记为已处理
	if savedPath != "" {
		h.markAsProcessed(email.UID)
	}

	return savedPath, nil
}
