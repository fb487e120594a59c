package layout

import (
	"errors"
	"fmt"
)

// ValidationError 表示请求参数不合法，HTTP 层映射为 400。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// MissingParam 返回缺少必填参数的校验错误。
func MissingParam(name string) error {
	return Validationf("Missing required parameter: %s", name)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FetchPolicy 决定远程素材获取失败后的处理方式，由各模板显式选择。
type FetchPolicy int

const (
	// FailOnFetchError 将获取失败作为请求失败返回。
	FailOnFetchError FetchPolicy = iota
	// FallbackOnFetchError 记录日志并使用占位/程序化生成的替代品。
	FallbackOnFetchError
	// OmitOnFetchError 记录日志并跳过该图层。
	OmitOnFetchError
)

func (p FetchPolicy) String() string {
	switch p {
	case FailOnFetchError:
		return "fail"
	case FallbackOnFetchError:
		return "fallback"
	case OmitOnFetchError:
		return "omit"
	default:
		return fmt.Sprintf("FetchPolicy(%d)", int(p))
	}
}

// ValidationPolicy 决定模板是否校验必填字段。
type ValidationPolicy int

const (
	RequireFields ValidationPolicy = iota
	NoValidation
)

func (p ValidationPolicy) String() string {
	if p == NoValidation {
		return "none"
	}
	return "require"
}
