package utils

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// 地球平均半径(公里)，与python haversine库保持一致
const EarthRadiusKm = 6371.0088

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Haversine 计算两个经纬度坐标之间的大圆距离(公里)
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// Mean 算术平均值，空切片返回NaN
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// StdDev 样本标准差(ddof=1)，少于2个元素返回NaN
func StdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	m := Mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

// Median 中位数，偶数个元素取中间两值的平均，空切片返回NaN
func Median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Round2 四舍五入保留2位小数
func Round2(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}

// WeekOfYearSunday 计算周序号，周日为一周的第一天
// 与C语言strftime的%U掩码一致：(yday + 7 - wday) / 7，wday周日为0
// 返回两位补零字符串，年初首个周日之前的日期属于第00周
func WeekOfYearSunday(t time.Time) string {
	yday := t.YearDay() - 1
	wday := int(t.Weekday())
	return fmt.Sprintf("%02d", (yday+7-wday)/7)
}
