package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWriteAndSubscribe(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	logger, err := NewLogger(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	ch := logger.Subscribe()
	logger.Info("数据集已刷新")

	select {
	case entry := <-ch:
		if !strings.Contains(entry, "INFO") || !strings.Contains(entry, "数据集已刷新") {
			t.Errorf("日志条目格式异常: %s", entry)
		}
	default:
		t.Fatal("订阅通道未收到日志")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "数据集已刷新") {
		t.Error("日志未写入文件")
	}
}

func TestEval(t *testing.T) {
	got, err := eval("10 * 1024 * 1024")
	if err != nil {
		t.Fatalf("eval报错: %v", err)
	}
	if got != 10*1024*1024 {
		t.Errorf("eval = %d", got)
	}

	// 表达式非法时必须报错，不能静默得到0导致每次都轮转
	if _, err := eval("10MB"); err == nil {
		t.Error("非法表达式应报错")
	}
}

func TestCheckRotateBadMaxSize(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "app.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	if err := logger.CheckRotate("10MB"); err == nil {
		t.Error("非法的大小配置应报错")
	}
}

func TestUnsubscribe(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "app.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	ch1 := logger.Subscribe()
	ch2 := logger.Subscribe()
	if len(logger.subscribers) != 2 {
		t.Fatalf("期望2个订阅者，实际%d", len(logger.subscribers))
	}

	logger.Unsubscribe(ch1)
	if len(logger.subscribers) != 1 {
		t.Fatalf("取消订阅后应剩1个订阅者，实际%d", len(logger.subscribers))
	}

	// 取消订阅的通道被关闭，留下的通道仍能收到日志
	if _, ok := <-ch1; ok {
		t.Error("取消订阅的通道应已关闭")
	}
	logger.Info("仍在订阅")
	select {
	case entry := <-ch2:
		if !strings.Contains(entry, "仍在订阅") {
			t.Errorf("日志条目异常: %s", entry)
		}
	default:
		t.Error("留下的订阅者未收到日志")
	}

	// 重复取消订阅不应panic
	logger.Unsubscribe(ch1)
}
