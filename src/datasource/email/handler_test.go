package email

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"DeliveryDashboard/src/storage"
)

func newTestLogger(t *testing.T) *storage.Logger {
	t.Helper()
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("初始化日志失败: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestHandlerSavesDatasetAttachment(t *testing.T) {
	dir := t.TempDir()
	logger := newTestLogger(t)
	h := NewDatasetAttachmentHandler("配送数据集", dir)

	mail := &Email{
		UID:     42,
		Date:    time.Now(),
		From:    "ops@example.com",
		Subject: "配送数据集 2022-04-13",
		Attachments: []*Attachment{
			{Filename: "readme.txt", Content: []byte("ignore")},
			{Filename: "deliveries.csv", Content: []byte("ID,City\n0x1,Urban\n")},
		},
	}

	savedPath, err := h.Handle(mail, logger)
	if err != nil {
		t.Fatalf("处理邮件失败: %v", err)
	}

	want := filepath.Join(dir, "deliveries.csv")
	if savedPath != want {
		t.Errorf("期望保存到%s，实际%s", want, savedPath)
	}

	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("读取保存的附件失败: %v", err)
	}
	if string(content) != "ID,City\n0x1,Urban\n" {
		t.Errorf("附件内容不一致: %q", content)
	}

	if !h.IsProcessed(42) {
		t.Error("处理后应标记为已处理")
	}

	// 再次处理同一封邮件应直接跳过
	savedPath, err = h.Handle(mail, logger)
	if err != nil {
		t.Fatalf("重复处理报错: %v", err)
	}
	if savedPath != "" {
		t.Errorf("重复处理应返回空路径，实际%s", savedPath)
	}
}

func TestHandlerIgnoresUnmatchedSubject(t *testing.T) {
	dir := t.TempDir()
	logger := newTestLogger(t)
	h := NewDatasetAttachmentHandler("配送数据集", dir)

	mail := &Email{
		UID:     7,
		Subject: "周会纪要",
		Attachments: []*Attachment{
			{Filename: "deliveries.csv", Content: []byte("ID\n0x1\n")},
		},
	}

	savedPath, err := h.Handle(mail, logger)
	if err != nil {
		t.Fatalf("处理邮件失败: %v", err)
	}
	if savedPath != "" {
		t.Errorf("主题不匹配应返回空路径，实际%s", savedPath)
	}
	if h.IsProcessed(7) {
		t.Error("主题不匹配的邮件不应标记为已处理")
	}
}

func TestHandlerSkipsNonDatasetAttachments(t *testing.T) {
	dir := t.TempDir()
	logger := newTestLogger(t)
	h := NewDatasetAttachmentHandler("配送数据集", dir)

	mail := &Email{
		UID:     8,
		Subject: "配送数据集",
		Attachments: []*Attachment{
			{Filename: "photo.png", Content: []byte{0x89, 0x50}},
		},
	}

	savedPath, err := h.Handle(mail, logger)
	if err != nil {
		t.Fatalf("处理邮件失败: %v", err)
	}
	if savedPath != "" {
		t.Errorf("没有数据集附件应返回空路径，实际%s", savedPath)
	}
	if h.IsProcessed(8) {
		t.Error("没有数据集附件的邮件不应标记为已处理")
	}
}

func TestFilterLatestTargetEmail(t *testing.T) {
	now := time.Now()
	emails := []*Email{
		{UID: 1, Subject: "配送数据集 旧", Date: now.Add(-2 * time.Hour)},
		{UID: 2, Subject: "无关邮件", Date: now},
		{UID: 3, Subject: "配送数据集 新", Date: now.Add(-time.Hour)},
	}

	got := filterLatestTargetEmail(emails, "配送数据集")
	if got == nil || got.UID != 3 {
		t.Fatalf("期望取到UID=3的最新目标邮件，实际%+v", got)
	}

	if filterLatestTargetEmail(emails, "不存在的主题") != nil {
		t.Error("没有匹配主题时应返回nil")
	}
}
