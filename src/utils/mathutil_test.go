package utils

import (
	"math"
	"testing"
	"time"
)

func TestHaversine(t *testing.T) {
	// 北京到上海，大约1067公里
	d := Haversine(39.9042, 116.4074, 31.2304, 121.4737)
	if d < 1050 || d > 1090 {
		t.Errorf("北京-上海距离计算异常: %v", d)
	}

	// 同一点距离为0
	if d := Haversine(22.745049, 75.892471, 22.745049, 75.892471); d != 0 {
		t.Errorf("同点距离应为0, got %v", d)
	}
}

func TestStdDev(t *testing.T) {
	// 样本标准差 ddof=1
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("StdDev = %v, want %v", got, want)
	}

	// 单元素样本标准差未定义
	if !math.IsNaN(StdDev([]float64{3})) {
		t.Error("单元素组的标准差应为NaN")
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Median = %v, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("Median = %v, want 2.5", got)
	}
	if !math.IsNaN(Median(nil)) {
		t.Error("空切片中位数应为NaN")
	}
}

func TestWeekOfYearSunday(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2022-01-01", "00"}, // 周六，首个周日之前
		{"2022-01-02", "01"}, // 周日，新的一周
		{"2022-02-11", "06"},
		{"2022-04-13", "15"},
		{"2022-03-27", "13"}, // 周日开启新桶
		{"2022-03-26", "12"},
	}
	for _, c := range cases {
		d, err := time.Parse("2006-01-02", c.date)
		if err != nil {
			t.Fatal(err)
		}
		if got := WeekOfYearSunday(d); got != c.want {
			t.Errorf("WeekOfYearSunday(%s) = %s, want %s", c.date, got, c.want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(26.456789); got != 26.46 {
		t.Errorf("Round2 = %v, want 26.46", got)
	}
	if !math.IsNaN(Round2(math.NaN())) {
		t.Error("Round2(NaN)应保持NaN")
	}
}
