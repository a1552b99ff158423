// Package dataset 负责读取类别型表格数据并编码为森林可用的整数矩阵.
//
// 数据可来自本地 CSV、UCI 机器学习库或 MinIO/S3 对象存储，统一表示为 Table.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wyfcoding/tforest/xerrors"
)

// Table 原始字符串表格.
type Table struct {
	Header  []string
	Records [][]string
}

// ReadCSV 读取 CSV，hasHeader 为 false 时列名生成为 c0, c1, ...
// 所有记录必须与首行列数一致.
func ReadCSV(r io.Reader, hasHeader bool) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, xerrors.ErrDatasetShape.WithDetail("ragged csv").WithCause(err)
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		records = append(records, rec)
	}

	t := &Table{}
	if hasHeader && len(records) > 0 {
		t.Header, records = records[0], records[1:]
	}
	if len(records) == 0 {
		return nil, xerrors.ErrEmptyDataset.WithDetail("csv has no data records")
	}
	if t.Header == nil {
		t.Header = make([]string, len(records[0]))
		for i := range t.Header {
			t.Header[i] = fmt.Sprintf("c%d", i)
		}
	}
	t.Records = records
	return t, nil
}

// LoadCSVFile 从本地文件读取 CSV.
func LoadCSVFile(path string, hasHeader bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, hasHeader)
}

// Column 返回列名对应的下标.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, xerrors.ErrConfiguration.WithDetail("column %q not found", name)
}

// Len 数据行数.
func (t *Table) Len() int {
	return len(t.Records)
}
