// reader.go
package file

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// ReadCSVToDataFrame 读取带表头的分隔文件，所有列保持原始字符串类型
// 数据清洗阶段再做类型转换，这里不做任何推断
func ReadCSVToDataFrame(filePath string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开数据集文件失败: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析数据集文件失败: %w", err)
	}
	if len(records) < 1 {
		return dataframe.DataFrame{}, fmt.Errorf("数据集文件为空: %s", filePath)
	}

	df := dataframe.LoadRecords(
		records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("构建dataframe失败: %w", df.Err)
	}

	return df, nil
}

// ReadXLSXToDataFrame 读取xlsx格式的数据集
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开xlsx文件失败: %w", err)
	}

	return sheetToDataFrame(xlFile, sheetName)
}

// ReadXLSX 从内存中的xlsx数据加载，邮件附件走这条路径
func ReadXLSX(data []byte, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开xlsx数据失败: %w", err)
	}

	return sheetToDataFrame(xlFile, sheetName)
}

// sheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 第一行为表头，数据从第二行开始
func sheetToDataFrame(xlFile *xlsx.File, sheetName string) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表")
	}

	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		return dataframe.DataFrame{}, fmt.Errorf("工作表不存在: %s", sheetName)
	}
	if len(sheet.Rows) < 1 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表为空: %s", sheetName)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			if i < len(row.Cells) {
				columns[i] = append(columns[i], row.Cells[i].Value)
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("构建dataframe失败: %w", df.Err)
	}
	return df, nil
}
