package datapush

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPushDigest(t *testing.T) {
	var received map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("请求体不是合法JSON: %v", err)
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer ts.Close()

	digest := &OpsDigest{
		Date:           "2022-04-13",
		Orders:         1024,
		Couriers:       87,
		AvgTime:        26.53,
		AvgDistanceKm:  9.87,
		SkippedRecords: 3,
	}

	if err := PushDigest(ts.URL, digest); err != nil {
		t.Fatalf("推送失败: %v", err)
	}

	if received["msgtype"] != "markdown" {
		t.Errorf("期望markdown消息，实际%v", received["msgtype"])
	}
	md, ok := received["markdown"].(map[string]interface{})
	if !ok {
		t.Fatal("缺少markdown字段")
	}
	text, _ := md["text"].(string)
	for _, want := range []string{"2022-04-13", "1024", "87", "26.53", "9.87"} {
		if !strings.Contains(text, want) {
			t.Errorf("摘要文本缺少%q: %s", want, text)
		}
	}
}

func TestPushDigestEmptyWebhook(t *testing.T) {
	// webhook未配置时直接跳过，不算错误
	if err := PushDigest("", &OpsDigest{}); err != nil {
		t.Fatalf("空webhook不应报错: %v", err)
	}
}

func TestPushDigestServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":310000,"errmsg":"keywords not in content"}`))
	}))
	defer ts.Close()

	// 直接调用发送函数，避开重试等待
	err := sendMarkdown(ts.URL, "t", "text")
	if err == nil {
		t.Fatal("机器人返回错误码时应报错")
	}
	if !strings.Contains(err.Error(), "keywords not in content") {
		t.Errorf("错误信息应包含机器人返回的errmsg: %v", err)
	}
}
