package server

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/tforest/dataset"
	"github.com/wyfcoding/tforest/forest"
	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/response"
	"github.com/wyfcoding/tforest/xerrors"
)

// Model 已训练的森林及其编码器，发布后只读.
type Model struct {
	Forest   *forest.Forest[string]
	Encoder  *dataset.Encoder
	Accuracy float64 // 留出集准确率，没有留出集时为 0
}

// API 预测接口.
type API struct {
	model  atomic.Pointer[Model]
	logger *logging.Logger
}

// NewAPI 创建预测接口，模型可稍后通过 SetModel 发布.
func NewAPI(logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.Default()
	}
	return &API{logger: logging.Component(logger, "server")}
}

// SetModel 原子替换当前模型.
func (a *API) SetModel(m *Model) {
	a.model.Store(m)
}

// Register 注册路由.
func (a *API) Register(r gin.IRouter) {
	r.GET("/healthz", a.healthz)
	v1 := r.Group("/v1")
	v1.POST("/predict", a.predict)
	v1.GET("/forest", a.forestInfo)
}

// PredictRequest Features 与 Records 二选一.
type PredictRequest struct {
	Features map[string]string   `json:"features"`
	Records  []map[string]string `json:"records"`
}

// PredictResponse 单条预测返回 Label，批量预测返回 Labels.
type PredictResponse struct {
	Label  string   `json:"label,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// ForestInfo 森林摘要.
type ForestInfo struct {
	Trees          int      `json:"trees"`
	Features       []string `json:"features"`
	Criterion      string   `json:"criterion"`
	Seed           uint64   `json:"seed"`
	MaxDepth       int      `json:"max_depth"`
	TournamentSize int      `json:"tournament_size"`
	Depths         []int    `json:"depths"`
	Leaves         []int    `json:"leaves"`
	Accuracy       float64  `json:"accuracy"`
}

func (a *API) healthz(c *gin.Context) {
	response.SuccessWithRawData(c, gin.H{"status": "ok", "ready": a.model.Load() != nil})
}

func (a *API) predict(c *gin.Context) {
	m := a.model.Load()
	if m == nil {
		response.Error(c, xerrors.ErrNotBuilt)
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if (req.Features == nil) == (req.Records == nil) {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", "exactly one of features or records is required")
		return
	}

	if req.Features != nil {
		row, err := m.Encoder.EncodeNamed(req.Features)
		if err != nil {
			response.Error(c, err)
			return
		}
		label, err := m.Forest.Predict(row)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, PredictResponse{Label: label})
		return
	}

	rows := make([][]int, len(req.Records))
	for i, rec := range req.Records {
		row, err := m.Encoder.EncodeNamed(rec)
		if err != nil {
			response.Error(c, xerrors.Wrap(err, xerrors.ErrInvalidArg, "encode record").WithContext("record", i))
			return
		}
		rows[i] = row
	}
	labels, err := m.Forest.PredictBatch(c.Request.Context(), rows)
	if err != nil {
		a.logger.WarnContext(c.Request.Context(), "batch prediction failed", "records", len(rows), "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, PredictResponse{Labels: labels})
}

func (a *API) forestInfo(c *gin.Context) {
	m := a.model.Load()
	if m == nil {
		response.Error(c, xerrors.ErrNotBuilt)
		return
	}

	cfg := m.Forest.Config()
	info := ForestInfo{
		Trees:          m.Forest.Len(),
		Features:       m.Encoder.FeatureNames(),
		Criterion:      string(cfg.Criterion),
		Seed:           m.Forest.Seed(),
		MaxDepth:       cfg.MaxDepth,
		TournamentSize: cfg.TournamentSize,
		Accuracy:       m.Accuracy,
	}
	for _, t := range m.Forest.Trees() {
		info.Depths = append(info.Depths, t.Root().Depth())
		info.Leaves = append(info.Leaves, t.Root().Leaves())
	}
	response.Success(c, info)
}
