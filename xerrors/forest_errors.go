package xerrors

var (
	// ErrConfiguration 超参数非法：比例不在 (0, 1]、锦标赛规模 < 1、树数量 < 1 等。
	ErrConfiguration = New(ErrInvalidArg, 400101, "invalid configuration", "", nil)
	// ErrEmptyDataset 训练集没有行或没有特征。
	ErrEmptyDataset = New(ErrInvalidArg, 400102, "empty dataset", "", nil)
	// ErrPredictionShape 预测样本的特征数与训练时不一致。
	ErrPredictionShape = New(ErrInvalidArg, 400103, "prediction row shape mismatch", "", nil)
	// ErrDatasetShape 特征矩阵与标签向量行数不一致，或矩阵列数参差。
	ErrDatasetShape = New(ErrInvalidArg, 400104, "dataset shape mismatch", "", nil)
	// ErrNotBuilt 模型尚未训练。
	ErrNotBuilt = New(ErrNotFound, 404101, "model not built", "call Build before Predict", nil)
	// ErrUnknownCriterion 未知的分裂准则。
	ErrUnknownCriterion = New(ErrInvalidArg, 400106, "unknown split criterion", "supported: information_gain, gini_gain, gain_ratio", nil)
	// ErrDatasetFetch 远程数据集获取失败。
	ErrDatasetFetch = New(ErrUnavailable, 503101, "dataset fetch failed", "", nil)
	// ErrBuildCanceled 训练被取消，已构建的部分被丢弃。
	ErrBuildCanceled = New(ErrCanceled, 408101, "build canceled", "", nil)
	// ErrPredictCanceled 批量预测被调用方取消。
	ErrPredictCanceled = New(ErrCanceled, 408102, "prediction canceled", "", nil)
	// ErrPredictTimeout 批量预测超过截止时间。
	ErrPredictTimeout = New(ErrDeadlineExceeded, 504101, "prediction timed out", "", nil)
)
