// cleaner.go
package processor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"DeliveryDashboard/src/utils"
)

// Sentinel 数据集中表示缺失值的占位符，注意结尾带一个空格
const Sentinel = "NaN "

// 数据集列名
const (
	ColID                 = "ID"
	ColCourierID          = "Delivery_person_ID"
	ColAge                = "Delivery_person_Age"
	ColRating             = "Delivery_person_Ratings"
	ColRestaurantLat      = "Restaurant_latitude"
	ColRestaurantLon      = "Restaurant_longitude"
	ColDeliveryLat        = "Delivery_location_latitude"
	ColDeliveryLon        = "Delivery_location_longitude"
	ColOrderDate          = "Order_Date"
	ColWeather            = "Weatherconditions"
	ColTraffic            = "Road_traffic_density"
	ColVehicleCondition   = "Vehicle_condition"
	ColOrderType          = "Type_of_order"
	ColVehicleType        = "Type_of_vehicle"
	ColMultipleDeliveries = "multiple_deliveries"
	ColFestival           = "Festival"
	ColCity               = "City"
	ColTimeTaken          = "Time_taken(min)"
)

// 清洗后日期列统一为ISO格式，字符串比较即日期比较
const (
	rawDateLayout  = "02-01-2006"
	isoDateLayout  = "2006-01-02"
	timeTakenLabel = "(min) "
)

// NormalizePolicy 坏行处理策略
type NormalizePolicy int

const (
	FailFast      NormalizePolicy = iota // 首个无法解析的行即中止整个清洗
	SkipAndReport                        // 跳过坏行并收集诊断信息
)

// ParsePolicy 从配置字符串解析清洗策略
func ParsePolicy(s string) (NormalizePolicy, error) {
	switch s {
	case "", "fail-fast":
		return FailFast, nil
	case "skip-and-report":
		return SkipAndReport, nil
	default:
		return FailFast, fmt.Errorf("未知的清洗策略: %s", s)
	}
}

// ErrMissingDelimiter 耗时字段缺少"(min) "标签分隔符
var ErrMissingDelimiter = errors.New("耗时字段缺少(min)标签分隔符")

// DatasetColumns 清洗与聚合涉及的标准列名全集
// 数据集导出方的列名有出入时，读入后按配置映射重命名到这套标准名
var DatasetColumns = []string{
	ColID, ColCourierID, ColAge, ColRating,
	ColRestaurantLat, ColRestaurantLon, ColDeliveryLat, ColDeliveryLon,
	ColOrderDate, ColWeather, ColTraffic, ColVehicleCondition,
	ColOrderType, ColVehicleType, ColMultipleDeliveries,
	ColFestival, ColCity, ColTimeTaken,
}

// RowError 单行清洗失败的诊断信息
type RowError struct {
	Row    int    // 行号(原始数据中的位置，0起)
	Column string // 出错的列
	Value  string // 原始值
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("第%d行 %s=%q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// 清洗必需的列，缺列直接报错
var requiredColumns = []string{
	ColID, ColCourierID, ColAge, ColRating, ColOrderDate,
	ColTraffic, ColCity, ColFestival, ColMultipleDeliveries,
	ColOrderType, ColVehicleType, ColTimeTaken,
}

// 做去空格处理的文本列
var trimColumns = []string{
	ColID, ColCourierID, ColTraffic, ColOrderType,
	ColVehicleType, ColCity, ColFestival,
}

// Normalize 将原始数据清洗为类型化的数据集
// 清洗步骤按顺序执行:
//  1. 删除六个关键字段(年龄/评分/骑手ID/交通密度/城市/节日)为缺失占位符的行
//  2. 年龄转整数，评分转小数，下单日期按日-月-年解析
//  3. 删除多单字段为缺失占位符的行，剩余值转整数
//  4. 去除文本类别字段的首尾空格
//  5. 从耗时字段提取"(min) "标签后的分钟数并转整数
//
// 已清洗过的数据再次清洗是幂等的：ISO日期和纯数字耗时会被原样接受
// 返回的dataframe是新构建的，不会修改输入
func Normalize(df dataframe.DataFrame, policy NormalizePolicy) (dataframe.DataFrame, []RowError, error) {
	for _, col := range requiredColumns {
		if !utils.HasColumn(df, col) {
			return dataframe.DataFrame{}, nil, fmt.Errorf("数据集缺少列: %s", col)
		}
	}

	names := df.Names()
	nrow := df.Nrow()

	// 一次性取出所有列的原始字符串，避免逐元素访问
	raw := make(map[string][]string, len(names))
	for _, name := range names {
		raw[name] = df.Col(name).Records()
	}

	// 六个关键字段的行级缺失判断
	sentinelCols := []string{ColAge, ColRating, ColCourierID, ColTraffic, ColCity, ColFestival}

	type typedRow struct {
		src       int // 原始行号
		age       int
		rating    float64
		date      string
		multiple  int
		timeTaken int
	}

	var (
		kept    []typedRow
		rowErrs []RowError
	)

	appendErr := func(row int, col, val string, cause error) error {
		re := RowError{Row: row, Column: col, Value: val, Err: cause}
		if policy == FailFast {
			return re
		}
		rowErrs = append(rowErrs, re)
		return nil
	}

rows:
	for i := 0; i < nrow; i++ {
		// 第一步：关键字段缺失的行静默丢弃
		for _, col := range sentinelCols {
			if raw[col][i] == Sentinel {
				continue rows
			}
		}

		var tr typedRow
		tr.src = i

		// 第二步：类型转换
		age, err := strconv.Atoi(strings.TrimSpace(raw[ColAge][i]))
		if err != nil {
			if ferr := appendErr(i, ColAge, raw[ColAge][i], err); ferr != nil {
				return dataframe.DataFrame{}, nil, ferr
			}
			continue
		}
		tr.age = age

		rating, err := strconv.ParseFloat(strings.TrimSpace(raw[ColRating][i]), 64)
		if err != nil {
			if ferr := appendErr(i, ColRating, raw[ColRating][i], err); ferr != nil {
				return dataframe.DataFrame{}, nil, ferr
			}
			continue
		}
		tr.rating = rating

		date, err := parseOrderDate(raw[ColOrderDate][i])
		if err != nil {
			if ferr := appendErr(i, ColOrderDate, raw[ColOrderDate][i], err); ferr != nil {
				return dataframe.DataFrame{}, nil, ferr
			}
			continue
		}
		tr.date = date

		// 第三步：多单字段先查缺失再转整数
		if raw[ColMultipleDeliveries][i] == Sentinel {
			continue
		}
		multiple, err := strconv.Atoi(strings.TrimSpace(raw[ColMultipleDeliveries][i]))
		if err != nil {
			if ferr := appendErr(i, ColMultipleDeliveries, raw[ColMultipleDeliveries][i], err); ferr != nil {
				return dataframe.DataFrame{}, nil, ferr
			}
			continue
		}
		tr.multiple = multiple

		// 第五步：提取耗时分钟数(第四步的去空格在列重建时统一做)
		minutes, err := parseTimeTaken(raw[ColTimeTaken][i])
		if err != nil {
			if ferr := appendErr(i, ColTimeTaken, raw[ColTimeTaken][i], err); ferr != nil {
				return dataframe.DataFrame{}, nil, ferr
			}
			continue
		}
		tr.timeTaken = minutes

		kept = append(kept, tr)
	}

	// 按原始列顺序重建类型化的列
	seriesList := make([]series.Series, 0, len(names))
	for _, name := range names {
		switch name {
		case ColAge:
			vals := make([]int, len(kept))
			for j, tr := range kept {
				vals[j] = tr.age
			}
			seriesList = append(seriesList, series.New(vals, series.Int, name))
		case ColRating:
			vals := make([]float64, len(kept))
			for j, tr := range kept {
				vals[j] = tr.rating
			}
			seriesList = append(seriesList, series.New(vals, series.Float, name))
		case ColOrderDate:
			vals := make([]string, len(kept))
			for j, tr := range kept {
				vals[j] = tr.date
			}
			seriesList = append(seriesList, series.New(vals, series.String, name))
		case ColMultipleDeliveries:
			vals := make([]int, len(kept))
			for j, tr := range kept {
				vals[j] = tr.multiple
			}
			seriesList = append(seriesList, series.New(vals, series.Int, name))
		case ColTimeTaken:
			vals := make([]int, len(kept))
			for j, tr := range kept {
				vals[j] = tr.timeTaken
			}
			seriesList = append(seriesList, series.New(vals, series.Int, name))
		default:
			vals := make([]string, len(kept))
			trim := utils.Contains(trimColumns, name)
			for j, tr := range kept {
				v := raw[name][tr.src]
				if trim {
					v = strings.TrimSpace(v)
				}
				vals[j] = v
			}
			seriesList = append(seriesList, series.New(vals, series.String, name))
		}
	}

	clean := dataframe.New(seriesList...)
	if clean.Err != nil {
		return dataframe.DataFrame{}, nil, fmt.Errorf("重建dataframe失败: %w", clean.Err)
	}

	return clean, rowErrs, nil
}

// parseOrderDate 解析下单日期，输出ISO格式
// 原始格式为日-月-年；已是ISO格式的值直接接受，保证二次清洗幂等
func parseOrderDate(v string) (string, error) {
	s := strings.TrimSpace(v)
	if t, err := time.Parse(rawDateLayout, s); err == nil {
		return t.Format(isoDateLayout), nil
	}
	if t, err := time.Parse(isoDateLayout, s); err == nil {
		return t.Format(isoDateLayout), nil
	}
	return "", fmt.Errorf("日期格式不符合%s", rawDateLayout)
}

// parseTimeTaken 从"(min) 30"形式的文本中提取分钟数
// 纯数字的值直接接受，保证二次清洗幂等
func parseTimeTaken(v string) (int, error) {
	if idx := strings.Index(v, timeTakenLabel); idx >= 0 {
		minutes, err := strconv.Atoi(strings.TrimSpace(v[idx+len(timeTakenLabel):]))
		if err != nil {
			return 0, fmt.Errorf("标签后的分钟数无法解析: %w", err)
		}
		return minutes, nil
	}

	if minutes, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return minutes, nil
	}

	return 0, ErrMissingDelimiter
}
