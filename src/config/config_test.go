package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	configJSON := `{
		"email": {
			"server": "imap.example.com:993",
			"username": "ops@example.com",
			"password": "secret",
			"target_subject": "物流数据集",
			"check_interval": "5m"
		},
		"listen_addr": ":8080",
		"data_dir": "data",
		"dataset_file": "train.csv",
		"sheet_name": "Sheet1",
		"log_name": "app.log",
		"log_max_size": "10 * 1024 * 1024",
		"normalize_policy": "fail-fast",
		"export_dir": "export",
		"export_spec": "@daily"
	}`

	dataJSON := `{
		"default_cutoff": "13-04-2022",
		"default_traffic": ["Low", "Medium", "High", "Jam"],
		"cities": ["Metropolitian", "Urban", "Semi-Urban"],
		"columns": {"order_date": "Order_Date"}
	}`

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(dataJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, dcfg, err := LoadConfig(dir, "config.json", "dataconfig.json")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %s", cfg.ListenAddr)
	}
	if time.Duration(cfg.Email.CheckInterval) != 5*time.Minute {
		t.Errorf("check_interval = %v", time.Duration(cfg.Email.CheckInterval))
	}
	if dcfg.GetColumn("order_date") != "Order_Date" {
		t.Errorf("order_date列映射错误: %s", dcfg.GetColumn("order_date"))
	}
	if dcfg.GetColumn("City") != "City" {
		t.Errorf("未配置列应原样返回: %s", dcfg.GetColumn("City"))
	}
	if len(dcfg.DefaultTraffic) != 4 {
		t.Errorf("default_traffic数量错误: %d", len(dcfg.DefaultTraffic))
	}
}
