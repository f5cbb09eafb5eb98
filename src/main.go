package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/robfig/cron"

	"DeliveryDashboard/src/config"
	"DeliveryDashboard/src/datapush"
	"DeliveryDashboard/src/datasource/email"
	"DeliveryDashboard/src/datasource/file"
	"DeliveryDashboard/src/processor"
	"DeliveryDashboard/src/storage"
	"DeliveryDashboard/src/utils"
)

// cutoffLayout 请求参数与默认配置里的日期格式
const cutoffLayout = "02-01-2006"

// server 看板服务：持有配置与日志器，每个请求重新读取数据集
type server struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	logger *storage.Logger
}

// datasetPath 数据集文件的完整路径
func (s *server) datasetPath() string {
	return filepath.Join(s.cfg.DataDir, s.cfg.DatasetFile)
}

// loadDataset 读取并清洗数据集，返回清洗后的数据和被剔除的行数
func (s *server) loadDataset() (dataframe.DataFrame, int, error) {
	path := s.datasetPath()

	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		df, err = file.ReadCSVToDataFrame(path)
	case ".xlsx":
		df, err = file.ReadXLSXToDataFrame(path, s.cfg.SheetName)
	default:
		return dataframe.DataFrame{}, 0, fmt.Errorf("不支持的数据集格式: %s", path)
	}
	if err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("读取数据集失败: %w", err)
	}

	// 导出方列名与标准名不一致时按配置映射重命名
	for _, logical := range processor.DatasetColumns {
		actual := s.dcfg.GetColumn(logical)
		if actual != logical && utils.HasColumn(df, actual) {
			df = df.Rename(logical, actual)
		}
	}

	policy, err := processor.ParsePolicy(s.cfg.NormalizePolicy)
	if err != nil {
		return dataframe.DataFrame{}, 0, err
	}

	clean, rowErrs, err := processor.Normalize(df, policy)
	if err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("清洗数据集失败: %w", err)
	}

	return clean, len(rowErrs), nil
}

// parseFilters 解析请求中的筛选参数，缺省时取数据口径配置的默认值
func (s *server) parseFilters(r *http.Request) (time.Time, []string, error) {
	q := r.URL.Query()

	cutoffStr := q.Get("cutoff")
	if cutoffStr == "" {
		cutoffStr = s.dcfg.DefaultCutoff
	}
	cutoff, err := time.Parse(cutoffLayout, cutoffStr)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("无效的日期上限 %q, 格式应为DD-MM-YYYY", cutoffStr)
	}

	traffic := q["traffic"]
	if len(traffic) == 0 {
		traffic = s.dcfg.DefaultTraffic
	}

	return cutoff, traffic, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("写入响应失败: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleView 三个视角接口的公共流程：读取、清洗、过滤、聚合
func (s *server) handleView(w http.ResponseWriter, r *http.Request, build func(dataframe.DataFrame) interface{}) {
	cutoff, traffic, err := s.parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	df, skipped, err := s.loadDataset()
	if err != nil {
		s.logger.Error(err.Error())
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	filtered := processor.ApplyFilters(df, cutoff, traffic)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cutoff":       cutoff.Format(cutoffLayout),
		"traffic":      traffic,
		"rows":         filtered.Nrow(),
		"skipped_rows": skipped,
		"data":         build(filtered),
	})
}

func (s *server) handleCompany(w http.ResponseWriter, r *http.Request) {
	s.handleView(w, r, func(df dataframe.DataFrame) interface{} {
		return processor.BuildCompanyView(df)
	})
}

func (s *server) handleCouriers(w http.ResponseWriter, r *http.Request) {
	s.handleView(w, r, func(df dataframe.DataFrame) interface{} {
		return processor.BuildCourierView(df, s.dcfg.Cities)
	})
}

func (s *server) handleRestaurants(w http.ResponseWriter, r *http.Request) {
	s.handleView(w, r, func(df dataframe.DataFrame) interface{} {
		return processor.BuildRestaurantView(df)
	})
}

// handleLogs 以chunked方式向客户端持续推送实时日志
func (s *server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Transfer-Encoding", "chunked")

	// 创建日志订阅通道，断开时释放
	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	for {
		select {
		case msg := <-logChan:
			if _, err := fmt.Fprintln(w, msg); err != nil {
				// 客户端断开连接时退出
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// buildDigest 基于默认口径生成当日运营摘要
func (s *server) buildDigest(df dataframe.DataFrame, skipped int) *datapush.OpsDigest {
	avgTime := utils.Mean(df.Col(processor.ColTimeTaken).Float())

	return &datapush.OpsDigest{
		Date:           time.Now().Format("2006-01-02"),
		Orders:         df.Nrow(),
		Couriers:       processor.UniqueCouriers(df),
		AvgTime:        utils.Round2(avgTime),
		AvgDistanceKm:  processor.AvgDeliveryDistance(df),
		SkippedRecords: skipped,
	}
}

// exportDailyReport 导出每日汇总报表，随后邮件发送并推送摘要
func (s *server) exportDailyReport() error {
	df, skipped, err := s.loadDataset()
	if err != nil {
		return err
	}

	cutoff, err := time.Parse(cutoffLayout, s.dcfg.DefaultCutoff)
	if err != nil {
		return fmt.Errorf("无效的默认日期上限: %w", err)
	}
	filtered := processor.ApplyFilters(df, cutoff, s.dcfg.DefaultTraffic)

	tables := map[string]dataframe.DataFrame{
		"每日订单量":  processor.OrdersPerDay(filtered),
		"交通密度占比": processor.TrafficShare(filtered),
		"城市配送耗时": processor.AvgStdTimeByCity(filtered),
		"城市配送距离": processor.AvgDistanceByCity(filtered),
	}
	order := []string{"每日订单量", "交通密度占比", "城市配送耗时", "城市配送距离"}

	if err := os.MkdirAll(s.cfg.ExportDir, 0755); err != nil {
		return fmt.Errorf("创建导出目录失败: %w", err)
	}
	reportPath := filepath.Join(s.cfg.ExportDir,
		fmt.Sprintf("delivery_report_%s.xlsx", time.Now().Format("20060102")))

	if err := utils.SaveSheets(tables, order, reportPath); err != nil {
		return err
	}
	s.logger.Info("日报已导出: " + reportPath)

	// 配置了收件人才发送邮件
	if s.cfg.Report.Server != "" && len(s.cfg.Report.To) > 0 {
		if err := email.SendReport(s.cfg, reportPath); err != nil {
			s.logger.Error("日报邮件发送失败: " + err.Error())
		} else {
			s.logger.Info("日报邮件已发送")
		}
	}

	if err := datapush.PushDigest(s.cfg.PushWebhook, s.buildDigest(filtered, skipped)); err != nil {
		s.logger.Error("日报摘要推送失败: " + err.Error())
	}

	return nil
}

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("初始化日志失败:", err)
	}

	srv := &server{cfg: cfg, dcfg: dcfg, logger: logger}

	// 邮箱客户端与附件处理器
	emailClient := email.NewEmailClient(
		cfg.Email.Server,
		cfg.Email.Username,
		cfg.Email.Password)
	handler := email.NewDatasetAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir)

	// 设置定时任务
	c := cron.New()

	// 按配置的间隔轮询邮箱，拉取新数据集
	interval := time.Duration(cfg.Email.CheckInterval).String()
	cronSpec := fmt.Sprintf("@every %s", interval)
	err = c.AddFunc(cronSpec, func() {
		savedPath, err := email.CheckAndProcessEmails(emailClient, handler, logger)
		if err != nil {
			logger.Error("检查处理邮件失败: " + err.Error())
			return
		}
		if savedPath != "" {
			logger.Info("数据集已刷新: " + savedPath)
		}
	})
	if err != nil {
		logger.Error("创建邮箱轮询任务失败: " + err.Error())
		return
	}

	// 每日报表导出
	if cfg.ExportSpec != "" {
		err = c.AddFunc(cfg.ExportSpec, func() {
			if err := srv.exportDailyReport(); err != nil {
				logger.Error("日报导出失败: " + err.Error())
			}
		})
		if err != nil {
			logger.Error("创建日报任务失败: " + err.Error())
			return
		}
	}

	// 日志轮转检查
	err = c.AddFunc("@hourly", func() {
		if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	})
	if err != nil {
		logger.Error("创建日志轮转任务失败: " + err.Error())
		return
	}

	c.Start()
	defer c.Stop()

	// 监控数据目录，数据集被覆盖写入时记录
	monitor, err := file.NewFileMonitor(cfg.DataDir)
	if err != nil {
		logger.Error("启动文件监控失败: " + err.Error())
	} else {
		defer monitor.Close()
		go func() {
			if err := monitor.Watch(func(path string) {
				logger.Info("数据集文件已更新: " + path)
			}); err != nil {
				logger.Error("文件监控异常退出: " + err.Error())
			}
		}()
	}

	// 注册看板接口
	mux := http.NewServeMux()
	mux.HandleFunc("/api/company", srv.handleCompany)
	mux.HandleFunc("/api/couriers", srv.handleCouriers)
	mux.HandleFunc("/api/restaurants", srv.handleRestaurants)
	mux.HandleFunc("/logs", srv.handleLogs)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("看板服务已启动: " + cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("看板服务异常退出: " + err.Error())
		}
	}()

	waitForShutdown(httpServer, logger)
}

// waitForShutdown 等待退出信号并优雅关闭
func waitForShutdown(httpServer *http.Server, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("收到信号: " + sig.String() + ", 正在关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("关闭看板服务失败: " + err.Error())
	}

	logger.Close()
}
