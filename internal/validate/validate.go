// Package validate wraps a shared validator/v10 instance with the MeetPick
// account rules and Korean user-facing messages.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Validator validates request bodies and decoded responses.
var Validator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
			strings.ContainsAny(s, "0123456789")
	})
	return v
}

// messages is keyed by "<StructField>.<tag>".
var messages = map[string]string{
	"Username.required": "아이디를 입력해주세요.",
	"Username.min":      "아이디는 4자 이상이어야 합니다.",
	"Username.max":      "아이디는 20자 이하여야 합니다.",
	"Username.username": "아이디는 영문, 숫자, 밑줄만 사용 가능합니다.",
	"Password.required": "비밀번호를 입력해주세요.",
	"Password.min":      "비밀번호는 8자 이상이어야 합니다.",
	"Password.password": "비밀번호는 영문과 숫자를 포함해야 합니다.",
	"Nickname.required": "닉네임을 입력해주세요.",
	"Nickname.min":      "닉네임은 2자 이상이어야 합니다.",
	"Nickname.max":      "닉네임은 10자 이하여야 합니다.",
	"Title.required":    "일정 제목을 입력해주세요.",
}

// FieldError is the first failing rule of a struct, with a display message.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Struct validates v and returns a *FieldError for the first failing field.
func Struct(v any) error {
	err := Validator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	msg, ok := messages[fe.StructField()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s 값이 올바르지 않습니다. (%s)", fe.Field(), fe.Tag())
	}
	return &FieldError{Field: fe.StructField(), Tag: fe.Tag(), Message: msg}
}
