// filter.go
package processor

import (
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"DeliveryDashboard/src/utils"
)

// ApplyFilters 按日期上限和交通密度集合过滤已清洗的数据集
// 保留 order_date < cutoff 且 traffic ∈ trafficSet 的行，行顺序不变
// 纯函数：相同参数重复过滤结果不变
func ApplyFilters(df dataframe.DataFrame, cutoff time.Time, trafficSet []string) dataframe.DataFrame {
	cutoffStr := cutoff.Format(isoDateLayout)

	out := df.Filter(dataframe.F{
		Colname:    ColOrderDate,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return el.String() < cutoffStr
		},
	})

	out = out.Filter(dataframe.F{
		Colname:    ColTraffic,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return utils.Contains(trafficSet, el.String())
		},
	})

	return out
}
