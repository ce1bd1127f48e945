package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"trevpay/pkg/errno"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// validate 用于领域对象 (tag: validate), gin 的 binding 引擎单独配置
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

// Init 让 gin binding 的错误信息也使用 json 字段名
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// Struct 校验领域对象, 失败返回 errno.ErrValidation
func Struct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return errno.ErrValidation.WithMessage(GetErrorMsg(err))
	}
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// GetErrorMsg translates validation errors into user-friendly messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "请求参数错误"
	}

	var errMsgs []string
	for _, e := range validationErrors {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
		case "eth_addr":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的以太坊地址", field))
		case "min":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 长度至少为 %s", field, param))
		case "max":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 长度不能超过 %s", field, param))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, param))
		case "numeric", "number":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是数字", field))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, e.Tag()))
		}
	}
	return strings.Join(errMsgs, "; ")
}
