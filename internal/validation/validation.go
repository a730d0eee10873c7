// Package validation はリクエストボディのバインドエラーを API のエラー形式に変換します。
package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Issue は1件の検証エラーです。Path は JSON のフィールド名です。
type Issue struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

var setupOnce sync.Once

// Setup は検証エラーのフィールド名に json タグを使うよう gin のバリデーターを設定します。
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// BindJSON はボディをバインドし、失敗した場合は 400 を返して false を返します。
func BindJSON(c *gin.Context, dst any) bool {
	Setup()
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": Issues(err)})
		return false
	}
	return true
}

// Issues はバインドエラーを Issue の一覧に変換します。
func Issues(err error) []Issue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Path: []string{}, Message: "Invalid JSON body"}}
	}

	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Path:    []string{fe.Field()},
			Message: message(fe),
		})
	}
	return issues
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", capitalize(name))
	case "email":
		return "Invalid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s chars", capitalize(name), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", capitalize(name), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", capitalize(name), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", capitalize(name))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
