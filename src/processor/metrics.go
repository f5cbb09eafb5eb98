// metrics.go
package processor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"DeliveryDashboard/src/utils"
)

// ErrEmptyGroup 查询的分组在过滤后的数据集中不存在
var ErrEmptyGroup = errors.New("分组无数据")

// bucket 一个分组的明细：键值、行数和数值列取值
type bucket struct {
	keys  []string
	count int
	vals  []float64
}

// collectGroups 按一到多个维度分组，分组键按升序排列
// valueCol为空时只做计数
func collectGroups(df dataframe.DataFrame, valueCol string, keyCols ...string) []bucket {
	nrow := df.Nrow()
	if nrow == 0 {
		return nil
	}

	keyRecords := make([][]string, len(keyCols))
	for i, col := range keyCols {
		keyRecords[i] = df.Col(col).Records()
	}

	var vals []float64
	if valueCol != "" {
		vals = df.Col(valueCol).Float()
	}

	index := make(map[string]*bucket)
	for i := 0; i < nrow; i++ {
		keys := make([]string, len(keyCols))
		composite := ""
		for j := range keyCols {
			keys[j] = keyRecords[j][i]
			composite += keyRecords[j][i] + "\x1f"
		}

		b, ok := index[composite]
		if !ok {
			b = &bucket{keys: keys}
			index[composite] = b
		}
		b.count++
		if vals != nil {
			b.vals = append(b.vals, vals[i])
		}
	}

	out := make([]bucket, 0, len(index))
	for _, b := range index {
		out = append(out, *b)
	}
	sort.Slice(out, func(a, b int) bool {
		for j := range out[a].keys {
			if out[a].keys[j] != out[b].keys[j] {
				return out[a].keys[j] < out[b].keys[j]
			}
		}
		return false
	})

	return out
}

// OrdersPerDay 按下单日期统计订单量
func OrdersPerDay(df dataframe.DataFrame) dataframe.DataFrame {
	groups := collectGroups(df, "", ColOrderDate)

	dates := make([]string, len(groups))
	counts := make([]int, len(groups))
	for i, g := range groups {
		dates[i] = g.keys[0]
		counts[i] = g.count
	}

	return dataframe.New(
		series.New(dates, series.String, ColOrderDate),
		series.New(counts, series.Int, "orders"),
	)
}

// weekOf 从ISO日期推导周序号(周日为一周的第一天)
func weekOf(isoDate string) (string, bool) {
	t, err := time.Parse(isoDateLayout, isoDate)
	if err != nil {
		return "", false
	}
	return utils.WeekOfYearSunday(t), true
}

// OrdersPerWeek 按周序号统计订单量
func OrdersPerWeek(df dataframe.DataFrame) dataframe.DataFrame {
	dates := df.Col(ColOrderDate).Records()

	counts := make(map[string]int)
	for _, d := range dates {
		if week, ok := weekOf(d); ok {
			counts[week]++
		}
	}

	weeks := sortedKeys(counts)
	orders := make([]int, len(weeks))
	for i, w := range weeks {
		orders[i] = counts[w]
	}

	return dataframe.New(
		series.New(weeks, series.String, "week_of_year"),
		series.New(orders, series.Int, "orders"),
	)
}

// OrdersPerCourierPerWeek 每周订单量除以每周活跃骑手数，输出比值序列
func OrdersPerCourierPerWeek(df dataframe.DataFrame) dataframe.DataFrame {
	dates := df.Col(ColOrderDate).Records()
	couriers := df.Col(ColCourierID).Records()

	counts := make(map[string]int)
	unique := make(map[string]map[string]struct{})
	for i, d := range dates {
		week, ok := weekOf(d)
		if !ok {
			continue
		}
		counts[week]++
		if unique[week] == nil {
			unique[week] = make(map[string]struct{})
		}
		unique[week][couriers[i]] = struct{}{}
	}

	weeks := sortedKeys(counts)
	ratios := make([]float64, len(weeks))
	for i, w := range weeks {
		ratios[i] = float64(counts[w]) / float64(len(unique[w]))
	}

	return dataframe.New(
		series.New(weeks, series.String, "week_of_year"),
		series.New(ratios, series.Float, "orders_per_courier"),
	)
}

// TrafficShare 各交通密度类别的订单占比(百分数)，合计为100
func TrafficShare(df dataframe.DataFrame) dataframe.DataFrame {
	groups := collectGroups(df, "", ColTraffic)

	total := 0
	for _, g := range groups {
		total += g.count
	}

	cats := make([]string, len(groups))
	percs := make([]float64, len(groups))
	for i, g := range groups {
		cats[i] = g.keys[0]
		percs[i] = 100 * float64(g.count) / float64(total)
	}

	return dataframe.New(
		series.New(cats, series.String, ColTraffic),
		series.New(percs, series.Float, "percentage"),
	)
}

// OrdersByCityTraffic 按城市和交通密度统计订单量
func OrdersByCityTraffic(df dataframe.DataFrame) dataframe.DataFrame {
	groups := collectGroups(df, "", ColCity, ColTraffic)

	cities := make([]string, len(groups))
	traffics := make([]string, len(groups))
	counts := make([]int, len(groups))
	for i, g := range groups {
		cities[i] = g.keys[0]
		traffics[i] = g.keys[1]
		counts[i] = g.count
	}

	return dataframe.New(
		series.New(cities, series.String, ColCity),
		series.New(traffics, series.String, ColTraffic),
		series.New(counts, series.Int, "orders"),
	)
}

// TopCouriersByTime 每个城市配送耗时前10的骑手
// 先取每个(城市,骑手)分组的最大耗时，fastest为true时按耗时升序(最快)，
// 否则降序(最慢)；只输出cities列出的城市，且按cities的顺序拼接
func TopCouriersByTime(df dataframe.DataFrame, fastest bool, cities []string) dataframe.DataFrame {
	groups := collectGroups(df, ColTimeTaken, ColCity, ColCourierID)

	type courierMax struct {
		courier string
		max     float64
	}
	perCity := make(map[string][]courierMax)
	for _, g := range groups {
		m := math.Inf(-1)
		for _, v := range g.vals {
			if v > m {
				m = v
			}
		}
		perCity[g.keys[0]] = append(perCity[g.keys[0]], courierMax{courier: g.keys[1], max: m})
	}

	var (
		outCities   []string
		outCouriers []string
		outTimes    []int
	)
	for _, city := range cities {
		rows := perCity[city]
		sort.SliceStable(rows, func(a, b int) bool {
			if fastest {
				return rows[a].max < rows[b].max
			}
			return rows[a].max > rows[b].max
		})

		limit := len(rows)
		if limit > 10 {
			limit = 10
		}
		for _, r := range rows[:limit] {
			outCities = append(outCities, city)
			outCouriers = append(outCouriers, r.courier)
			outTimes = append(outTimes, int(r.max))
		}
	}

	return dataframe.New(
		series.New(outCities, series.String, ColCity),
		series.New(outCouriers, series.String, ColCourierID),
		series.New(outTimes, series.Int, ColTimeTaken),
	)
}

// meanStdBy 数值列按维度分组后的均值与样本标准差
func meanStdBy(df dataframe.DataFrame, valueCol, meanName, stdName string, keyCols ...string) dataframe.DataFrame {
	groups := collectGroups(df, valueCol, keyCols...)

	keyVals := make([][]string, len(keyCols))
	for j := range keyCols {
		keyVals[j] = make([]string, len(groups))
	}
	means := make([]float64, len(groups))
	stds := make([]float64, len(groups))

	for i, g := range groups {
		for j := range keyCols {
			keyVals[j][i] = g.keys[j]
		}
		means[i] = utils.Mean(g.vals)
		stds[i] = utils.StdDev(g.vals)
	}

	cols := make([]series.Series, 0, len(keyCols)+2)
	for j, name := range keyCols {
		cols = append(cols, series.New(keyVals[j], series.String, name))
	}
	cols = append(cols,
		series.New(means, series.Float, meanName),
		series.New(stds, series.Float, stdName),
	)

	return dataframe.New(cols...)
}

// AvgStdTimeByCity 配送耗时按城市的均值与标准差
func AvgStdTimeByCity(df dataframe.DataFrame) dataframe.DataFrame {
	return meanStdBy(df, ColTimeTaken, "avg_time", "std_time", ColCity)
}

// AvgStdTimeByCityTraffic 配送耗时按城市和交通密度的均值与标准差
func AvgStdTimeByCityTraffic(df dataframe.DataFrame) dataframe.DataFrame {
	return meanStdBy(df, ColTimeTaken, "avg_time", "std_time", ColCity, ColTraffic)
}

// AvgStdTimeByCityOrderType 配送耗时按城市和订单类型的均值与标准差
func AvgStdTimeByCityOrderType(df dataframe.DataFrame) dataframe.DataFrame {
	return meanStdBy(df, ColTimeTaken, "avg_time", "std_time", ColCity, ColOrderType)
}

// AvgStdTimeByFestival 节日/非节日的配送耗时统计量
// festival取"Yes"或"No"，op取"avg_time"或"std_time"，结果保留2位小数
func AvgStdTimeByFestival(df dataframe.DataFrame, festival, op string) (float64, error) {
	if op != "avg_time" && op != "std_time" {
		return 0, fmt.Errorf("未知的统计量: %s", op)
	}

	groups := collectGroups(df, ColTimeTaken, ColFestival)
	for _, g := range groups {
		if g.keys[0] != festival {
			continue
		}
		if op == "avg_time" {
			return utils.Round2(utils.Mean(g.vals)), nil
		}
		return utils.Round2(utils.StdDev(g.vals)), nil
	}

	return 0, fmt.Errorf("%w: Festival=%s", ErrEmptyGroup, festival)
}

// rowDistances 每行餐厅坐标到送达坐标的大圆距离(公里)
func rowDistances(df dataframe.DataFrame) []float64 {
	rlat := df.Col(ColRestaurantLat).Float()
	rlon := df.Col(ColRestaurantLon).Float()
	dlat := df.Col(ColDeliveryLat).Float()
	dlon := df.Col(ColDeliveryLon).Float()

	dists := make([]float64, df.Nrow())
	for i := range dists {
		dists[i] = utils.Haversine(rlat[i], rlon[i], dlat[i], dlon[i])
	}
	return dists
}

// AvgDeliveryDistance 全部订单的平均配送距离(公里)，保留2位小数
func AvgDeliveryDistance(df dataframe.DataFrame) float64 {
	return utils.Round2(utils.Mean(rowDistances(df)))
}

// AvgDistanceByCity 平均配送距离按城市分组
func AvgDistanceByCity(df dataframe.DataFrame) dataframe.DataFrame {
	withDist := df.Mutate(series.New(rowDistances(df), series.Float, "distance"))
	groups := collectGroups(withDist, "distance", ColCity)

	cities := make([]string, len(groups))
	means := make([]float64, len(groups))
	for i, g := range groups {
		cities[i] = g.keys[0]
		means[i] = utils.Mean(g.vals)
	}

	return dataframe.New(
		series.New(cities, series.String, ColCity),
		series.New(means, series.Float, "distance"),
	)
}

// GeoMedianMarkers 按城市和交通密度分组的送达坐标中位数，用于地图标记
func GeoMedianMarkers(df dataframe.DataFrame) dataframe.DataFrame {
	latGroups := collectGroups(df, ColDeliveryLat, ColCity, ColTraffic)
	lonGroups := collectGroups(df, ColDeliveryLon, ColCity, ColTraffic)

	cities := make([]string, len(latGroups))
	traffics := make([]string, len(latGroups))
	lats := make([]float64, len(latGroups))
	lons := make([]float64, len(latGroups))
	for i, g := range latGroups {
		cities[i] = g.keys[0]
		traffics[i] = g.keys[1]
		lats[i] = utils.Median(g.vals)
		lons[i] = utils.Median(lonGroups[i].vals)
	}

	return dataframe.New(
		series.New(cities, series.String, ColCity),
		series.New(traffics, series.String, ColTraffic),
		series.New(lats, series.Float, ColDeliveryLat),
		series.New(lons, series.Float, ColDeliveryLon),
	)
}

// AvgRatingByCourier 每个骑手的平均评分
func AvgRatingByCourier(df dataframe.DataFrame) dataframe.DataFrame {
	groups := collectGroups(df, ColRating, ColCourierID)

	couriers := make([]string, len(groups))
	means := make([]float64, len(groups))
	for i, g := range groups {
		couriers[i] = g.keys[0]
		means[i] = utils.Mean(g.vals)
	}

	return dataframe.New(
		series.New(couriers, series.String, ColCourierID),
		series.New(means, series.Float, "avg_rating"),
	)
}

// AvgStdRatingByTraffic 评分按交通密度的均值与标准差
func AvgStdRatingByTraffic(df dataframe.DataFrame) dataframe.DataFrame {
	return meanStdBy(df, ColRating, "delivery_mean", "delivery_std", ColTraffic)
}

// AvgStdRatingByWeather 评分按天气状况的均值与标准差
func AvgStdRatingByWeather(df dataframe.DataFrame) dataframe.DataFrame {
	return meanStdBy(df, ColRating, "delivery_mean", "delivery_std", ColWeather)
}

// UniqueCouriers 去重后的骑手数量
func UniqueCouriers(df dataframe.DataFrame) int {
	if df.Nrow() == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, id := range df.Col(ColCourierID).Records() {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// MaxCourierAge 骑手最大年龄，空数据集返回NaN
func MaxCourierAge(df dataframe.DataFrame) float64 {
	return maxOf(colFloats(df, ColAge))
}

// MinCourierAge 骑手最小年龄，空数据集返回NaN
func MinCourierAge(df dataframe.DataFrame) float64 {
	return minOf(colFloats(df, ColAge))
}

// BestVehicleCondition 车辆状况的最好值
func BestVehicleCondition(df dataframe.DataFrame) float64 {
	return maxOf(colFloats(df, ColVehicleCondition))
}

// WorstVehicleCondition 车辆状况的最差值
func WorstVehicleCondition(df dataframe.DataFrame) float64 {
	return minOf(colFloats(df, ColVehicleCondition))
}

func colFloats(df dataframe.DataFrame, name string) []float64 {
	if df.Nrow() == 0 || !utils.HasColumn(df, name) {
		return nil
	}
	return df.Col(name).Float()
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
