package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// 常量定义
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	PUSH_TIMEOUT   = 10 * time.Second
)

// 钉钉机器人响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// OpsDigest 每日运营摘要，推送到群机器人
type OpsDigest struct {
	Date           string  // 数据日期
	Orders         int     // 订单总量
	Couriers       int     // 活跃骑手数
	AvgTime        float64 // 平均配送时长(分钟)
	AvgDistanceKm  float64 // 平均配送距离(公里)
	SkippedRecords int     // 清洗阶段剔除的记录数
}

// renderMarkdown 摘要转为钉钉markdown消息文本
func (d *OpsDigest) renderMarkdown() string {
	return fmt.Sprintf(
		"### 配送运营日报 %s\n\n"+
			"- 订单总量: %d\n"+
			"- 活跃骑手: %d\n"+
			"- 平均配送时长: %.2f 分钟\n"+
			"- 平均配送距离: %.2f 公里\n"+
			"- 清洗剔除记录: %d\n",
		d.Date, d.Orders, d.Couriers, d.AvgTime, d.AvgDistanceKm, d.SkippedRecords)
}

// sendMarkdown 调用机器人webhook发送markdown消息
func sendMarkdown(webhook, title, text string) error {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  text,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	req, err := http.NewRequest("POST", webhook, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: PUSH_TIMEOUT}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	if result.ErrCode != 0 {
		return fmt.Errorf("推送消息失败: %s", result.ErrMsg)
	}

	return nil
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}

// PushDigest 推送运营摘要，webhook为空时跳过
func PushDigest(webhook string, digest *OpsDigest) error {
	if webhook == "" {
		return nil
	}
	return retry(func() error {
		return sendMarkdown(webhook, "配送运营日报 "+digest.Date, digest.renderMarkdown())
	}, RETRY_TIMES, RETRY_INTERVAL)
}
