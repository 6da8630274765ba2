package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如证书不存在、无权访问）
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	ResourceMissing = 4004
	Forbidden       = 4003
	SystemError     = 5000
	EngineMissing   = 5031
)
