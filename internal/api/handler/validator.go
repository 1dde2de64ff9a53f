package handler

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"shiksha-grid/internal/service"
)

// RegisterValidators 在 gin 的校验引擎上注册自定义规则
//   - clock: HH:MM 或 HH:MM:SS
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("不支持的校验引擎: %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("clock", validateClock)
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := service.ParseClock(fl.Field().String())
	return err == nil
}
