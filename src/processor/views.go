// views.go
package processor

import (
	"math"

	"github.com/go-gota/gota/dataframe"
)

// Table 汇总表的JSON形式：首行为表头
type Table [][]string

// Records 把汇总表转为记录形式，NaN以字符串"NaN"输出
func Records(df dataframe.DataFrame) Table {
	return df.Records()
}

// optFloat NaN转为null，避免JSON序列化失败
func optFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// CompanyView 公司视角：订单量走势、交通占比、周指标、地理分布
type CompanyView struct {
	OrdersPerDay            Table `json:"orders_per_day"`
	TrafficShare            Table `json:"traffic_share"`
	OrdersByCityTraffic     Table `json:"orders_by_city_traffic"`
	OrdersPerWeek           Table `json:"orders_per_week"`
	OrdersPerCourierPerWeek Table `json:"orders_per_courier_per_week"`
	GeoMarkers              Table `json:"geo_markers"`
}

func BuildCompanyView(df dataframe.DataFrame) *CompanyView {
	return &CompanyView{
		OrdersPerDay:            Records(OrdersPerDay(df)),
		TrafficShare:            Records(TrafficShare(df)),
		OrdersByCityTraffic:     Records(OrdersByCityTraffic(df)),
		OrdersPerWeek:           Records(OrdersPerWeek(df)),
		OrdersPerCourierPerWeek: Records(OrdersPerCourierPerWeek(df)),
		GeoMarkers:              Records(GeoMedianMarkers(df)),
	}
}

// CourierView 骑手视角：年龄车况区间、评分统计、最快最慢排名
type CourierView struct {
	MaxAge                *float64 `json:"max_age"`
	MinAge                *float64 `json:"min_age"`
	BestVehicleCondition  *float64 `json:"best_vehicle_condition"`
	WorstVehicleCondition *float64 `json:"worst_vehicle_condition"`
	AvgRatingByCourier    Table    `json:"avg_rating_by_courier"`
	AvgStdRatingByTraffic Table    `json:"avg_std_rating_by_traffic"`
	AvgStdRatingByWeather Table    `json:"avg_std_rating_by_weather"`
	TopFastest            Table    `json:"top_fastest"`
	TopSlowest            Table    `json:"top_slowest"`
}

func BuildCourierView(df dataframe.DataFrame, cities []string) *CourierView {
	return &CourierView{
		MaxAge:                optFloat(MaxCourierAge(df)),
		MinAge:                optFloat(MinCourierAge(df)),
		BestVehicleCondition:  optFloat(BestVehicleCondition(df)),
		WorstVehicleCondition: optFloat(WorstVehicleCondition(df)),
		AvgRatingByCourier:    Records(AvgRatingByCourier(df)),
		AvgStdRatingByTraffic: Records(AvgStdRatingByTraffic(df)),
		AvgStdRatingByWeather: Records(AvgStdRatingByWeather(df)),
		TopFastest:            Records(TopCouriersByTime(df, true, cities)),
		TopSlowest:            Records(TopCouriersByTime(df, false, cities)),
	}
}

// RestaurantView 餐厅视角：骑手规模、配送距离与耗时统计
type RestaurantView struct {
	UniqueCouriers        int      `json:"unique_couriers"`
	AvgDistance           *float64 `json:"avg_distance"`
	FestivalAvgTime       *float64 `json:"festival_avg_time"`
	FestivalStdTime       *float64 `json:"festival_std_time"`
	NoFestivalAvgTime     *float64 `json:"no_festival_avg_time"`
	NoFestivalStdTime     *float64 `json:"no_festival_std_time"`
	AvgStdTimeByCity      Table    `json:"avg_std_time_by_city"`
	AvgStdTimeByCityOrder Table    `json:"avg_std_time_by_city_order_type"`
	AvgStdTimeByCityTraff Table    `json:"avg_std_time_by_city_traffic"`
	AvgDistanceByCity     Table    `json:"avg_distance_by_city"`
}

func BuildRestaurantView(df dataframe.DataFrame) *RestaurantView {
	view := &RestaurantView{
		UniqueCouriers:        UniqueCouriers(df),
		AvgStdTimeByCity:      Records(AvgStdTimeByCity(df)),
		AvgStdTimeByCityOrder: Records(AvgStdTimeByCityOrderType(df)),
		AvgStdTimeByCityTraff: Records(AvgStdTimeByCityTraffic(df)),
		AvgDistanceByCity:     Records(AvgDistanceByCity(df)),
	}

	if df.Nrow() > 0 {
		view.AvgDistance = optFloat(AvgDeliveryDistance(df))
	}

	// 节日分组缺失时对应指标留空
	if v, err := AvgStdTimeByFestival(df, "Yes", "avg_time"); err == nil {
		view.FestivalAvgTime = optFloat(v)
	}
	if v, err := AvgStdTimeByFestival(df, "Yes", "std_time"); err == nil {
		view.FestivalStdTime = optFloat(v)
	}
	if v, err := AvgStdTimeByFestival(df, "No", "avg_time"); err == nil {
		view.NoFestivalAvgTime = optFloat(v)
	}
	if v, err := AvgStdTimeByFestival(df, "No", "std_time"); err == nil {
		view.NoFestivalStdTime = optFloat(v)
	}

	return view
}
