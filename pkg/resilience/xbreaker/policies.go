package xbreaker

// TripPolicy 熔断判定策略。ReadyToTrip 返回 true 时熔断器进入 Open 状态。
type TripPolicy interface {
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定策略。默认 err == nil 即成功。
type SuccessPolicy interface {
	IsSuccessful(err error) bool
}

// SuccessFunc 函数形式的 SuccessPolicy。
type SuccessFunc func(err error) bool

func (f SuccessFunc) IsSuccessful(err error) bool { return f(err) }

// ConsecutiveFailuresPolicy 连续失败熔断策略
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败熔断策略，连续失败 threshold 次后熔断。
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{threshold: threshold}
}

func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// FailureRatioPolicy 失败率熔断策略。
// 请求数达到 minRequests 后，失败率 >= ratio 时熔断。
type FailureRatioPolicy struct {
	ratio       float64
	minRequests uint32
}

// NewFailureRatio 创建失败率熔断策略，ratio 截断到 [0, 1]。
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	return &FailureRatioPolicy{
		ratio:       min(max(ratio, 0), 1),
		minRequests: minRequests,
	}
}

func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.ratio
}

var (
	_ TripPolicy    = (*ConsecutiveFailuresPolicy)(nil)
	_ TripPolicy    = (*FailureRatioPolicy)(nil)
	_ SuccessPolicy = SuccessFunc(nil)
)
