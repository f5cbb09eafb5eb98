// views_test.go
package processor

import (
	"encoding/json"
	"testing"
)

func TestBuildRestaurantViewFestivalFallback(t *testing.T) {
	clean := cleanDF(t,
		map[string]string{ColID: "0x1", ColFestival: "No ", ColTimeTaken: "(min) 20"},
		map[string]string{ColID: "0x2", ColFestival: "No ", ColTimeTaken: "(min) 30"},
	)

	view := BuildRestaurantView(clean)

	if view.FestivalAvgTime != nil {
		t.Errorf("没有节日数据时指标应留空，实际%v", *view.FestivalAvgTime)
	}
	if view.NoFestivalAvgTime == nil || *view.NoFestivalAvgTime != 25 {
		t.Errorf("非节日均值应为25，实际%v", view.NoFestivalAvgTime)
	}
	if view.UniqueCouriers != 1 {
		t.Errorf("骑手数应为1，实际%d", view.UniqueCouriers)
	}

	// 视图必须能序列化为JSON(NaN会导致编码失败)
	if _, err := json.Marshal(view); err != nil {
		t.Errorf("餐厅视图序列化失败: %v", err)
	}
}

func TestViewsJSONSafe(t *testing.T) {
	clean := cleanDF(t,
		map[string]string{ColID: "0x1", ColCity: "Urban "},
		map[string]string{ColID: "0x2", ColCity: "Metropolitian "},
	)

	// 单行分组会产生NaN标准差，序列化前必须转为字符串或null
	if _, err := json.Marshal(BuildCompanyView(clean)); err != nil {
		t.Errorf("公司视图序列化失败: %v", err)
	}
	if _, err := json.Marshal(BuildCourierView(clean, []string{"Metropolitian", "Urban", "Semi-Urban"})); err != nil {
		t.Errorf("骑手视图序列化失败: %v", err)
	}

	// 空数据集下三个视图都不应崩溃
	empty := ApplyFilters(clean, date(t, "2022-04-13"), nil)
	if _, err := json.Marshal(BuildCompanyView(empty)); err != nil {
		t.Errorf("空数据公司视图序列化失败: %v", err)
	}
	if _, err := json.Marshal(BuildRestaurantView(empty)); err != nil {
		t.Errorf("空数据餐厅视图序列化失败: %v", err)
	}
}
