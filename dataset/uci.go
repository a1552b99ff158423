package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/xerrors"
)

// DefaultUCIBaseURL UCI 机器学习库元数据接口.
const DefaultUCIBaseURL = "https://archive.ics.uci.edu/api/dataset"

// MushroomID UCI 蘑菇数据集编号.
const MushroomID = 73

const (
	roleFeature = "Feature"
	roleTarget  = "Target"
)

// Getter 下载 URL 的完整内容，httpclient.Client 满足该接口.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// UCIDataset 从 UCI 获取的数据集，Table 只保留特征列与标签列.
type UCIDataset struct {
	Table  *Table
	Name   string
	Target string
}

type uciResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Name      string        `json:"name"`
		DataURL   string        `json:"data_url"`
		Variables []uciVariable `json:"variables"`
	} `json:"data"`
}

type uciVariable struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// UCIFetcher 先请求元数据，再下载 CSV 并按变量角色拆分特征与标签.
type UCIFetcher struct {
	client  Getter
	baseURL string
	logger  *logging.Logger
}

// NewUCIFetcher 创建 UCI 获取器，baseURL 为空时使用官方地址.
func NewUCIFetcher(client Getter, baseURL string, logger *logging.Logger) *UCIFetcher {
	if baseURL == "" {
		baseURL = DefaultUCIBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &UCIFetcher{client: client, baseURL: baseURL, logger: logging.Component(logger, "dataset.uci")}
}

// Fetch 获取编号为 id 的数据集.
func (f *UCIFetcher) Fetch(ctx context.Context, id int) (*UCIDataset, error) {
	defer f.logger.LogDuration(ctx, "uci fetch", "id", id)()

	u, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, xerrors.ErrConfiguration.WithDetail("invalid uci base url %q", f.baseURL).WithCause(err)
	}
	q := u.Query()
	q.Set("id", strconv.Itoa(id))
	u.RawQuery = q.Encode()

	body, err := f.client.Get(ctx, u.String())
	if err != nil {
		return nil, xerrors.ErrDatasetFetch.WithDetail("metadata for dataset %d", id).WithCause(err)
	}

	var meta uciResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, xerrors.ErrDatasetFetch.WithDetail("decode metadata").WithCause(err)
	}
	if meta.Status != 0 && meta.Status != 200 {
		return nil, xerrors.ErrDatasetFetch.WithDetail("uci status %d: %s", meta.Status, meta.Message)
	}
	if meta.Data.DataURL == "" {
		return nil, xerrors.ErrDatasetFetch.WithDetail("dataset %d is not available for import", id)
	}

	raw, err := f.client.Get(ctx, meta.Data.DataURL)
	if err != nil {
		return nil, xerrors.ErrDatasetFetch.WithDetail("data for dataset %d", id).WithCause(err)
	}
	full, err := ReadCSV(bytes.NewReader(raw), true)
	if err != nil {
		return nil, err
	}

	table, target, err := selectRoles(full, meta.Data.Variables)
	if err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "uci dataset fetched",
		"id", id, "name", meta.Data.Name, "rows", table.Len(), "columns", len(table.Header), "target", target)
	return &UCIDataset{Table: table, Name: meta.Data.Name, Target: target}, nil
}

// selectRoles 保留 Feature 列并把第一个 Target 列放到最后.
func selectRoles(full *Table, vars []uciVariable) (*Table, string, error) {
	var cols []int
	target := -1
	for _, v := range vars {
		if v.Role != roleFeature && v.Role != roleTarget {
			continue
		}
		idx, err := full.Column(v.Name)
		if err != nil {
			return nil, "", xerrors.ErrDatasetShape.WithDetail("variable %q missing from data", v.Name)
		}
		switch {
		case v.Role == roleFeature:
			cols = append(cols, idx)
		case target < 0:
			target = idx
		}
	}
	if target < 0 {
		return nil, "", xerrors.ErrDatasetShape.WithDetail("dataset has no target variable")
	}
	if len(cols) == 0 {
		return nil, "", xerrors.ErrEmptyDataset.WithDetail("dataset has no feature variables")
	}
	cols = append(cols, target)

	out := &Table{Header: make([]string, len(cols)), Records: make([][]string, len(full.Records))}
	for i, c := range cols {
		out.Header[i] = full.Header[c]
	}
	for r, rec := range full.Records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = rec[c]
		}
		out.Records[r] = row
	}
	return out, full.Header[target], nil
}

func (d *UCIDataset) String() string {
	return fmt.Sprintf("%s (%d rows, target %s)", d.Name, d.Table.Len(), d.Target)
}
