package file

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSVToDataFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.csv")

	csvData := "ID,Delivery_person_ID,City\n" +
		"0x4607,INDORES13DEL02, Urban \n" +
		"0xb379,BANGRES18DEL02,Metropolitian \n"

	if err := os.WriteFile(path, []byte(csvData), 0644); err != nil {
		t.Fatal(err)
	}

	df, err := ReadCSVToDataFrame(path)
	if err != nil {
		t.Fatal(err)
	}

	if df.Nrow() != 2 {
		t.Errorf("行数 = %d, want 2", df.Nrow())
	}
	if len(df.Names()) != 3 {
		t.Errorf("列数 = %d, want 3", len(df.Names()))
	}

	// 原始读取不做任何清理，空格必须原样保留
	if got := df.Col("City").Elem(0).String(); got != " Urban " {
		t.Errorf("City原始值 = %q, want %q", got, " Urban ")
	}
}

func TestReadCSVToDataFrameMissingFile(t *testing.T) {
	if _, err := ReadCSVToDataFrame("/nonexistent/train.csv"); err == nil {
		t.Fatal("缺失文件必须报错")
	}
}

// buildTestWorkbook 生成内存中的xlsx数据集
func buildTestWorkbook(t *testing.T, sheetName string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)
	rows := [][]interface{}{
		{"ID", "City"},
		{"0x4607", " Urban "},
		{"0xb379", "Metropolitian "},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := buildTestWorkbook(t, "deliveries")

	df, err := ReadXLSX(data, "deliveries")
	if err != nil {
		t.Fatal(err)
	}

	if df.Nrow() != 2 {
		t.Errorf("行数 = %d, want 2", df.Nrow())
	}
	if got := df.Col("City").Elem(0).String(); got != " Urban " {
		t.Errorf("City原始值 = %q, want %q", got, " Urban ")
	}

	if _, err := ReadXLSX(data, "不存在的表"); err == nil {
		t.Fatal("工作表不存在必须报错")
	}
}

func TestReadXLSXToDataFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deliveries.xlsx")
	if err := os.WriteFile(path, buildTestWorkbook(t, "deliveries"), 0644); err != nil {
		t.Fatal(err)
	}

	df, err := ReadXLSXToDataFrame(path, "deliveries")
	if err != nil {
		t.Fatal(err)
	}
	if df.Nrow() != 2 {
		t.Errorf("行数 = %d, want 2", df.Nrow())
	}
}
