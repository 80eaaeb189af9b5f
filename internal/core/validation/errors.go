package validation

import (
	"errors"
	"strings"
)

// Kind はフィールド単位の検証失敗の種類です。
type Kind string

const (
	KindEmpty             Kind = "EMPTY"
	KindTooShort          Kind = "TOO_SHORT"
	KindTooLong           Kind = "TOO_LONG"
	KindInvalidFormat     Kind = "INVALID_FORMAT"
	KindInvalidEnum       Kind = "INVALID_ENUM"
	KindFutureDate        Kind = "FUTURE_DATE"
	KindRequired          Kind = "REQUIRED"
	KindConflict          Kind = "CONFLICT"
	KindIllegalTransition Kind = "ILLEGAL_TRANSITION"
)

// Category は呼び出し側が分岐に使うエラー分類です。
type Category string

const (
	CategoryFieldValidation   Category = "FIELD_VALIDATION"
	CategoryConflict          Category = "CONFLICT"
	CategoryIllegalTransition Category = "ILLEGAL_TRANSITION"
)

var (
	// ErrFieldValidation はフィールド検証エラーの分類に一致します。
	ErrFieldValidation = errors.New("field validation failed")
	// ErrConflict は一意性・整合性違反の分類に一致します。
	ErrConflict = errors.New("conflict")
	// ErrIllegalTransition はステータス遷移違反の分類に一致します。
	ErrIllegalTransition = errors.New("illegal status transition")
)

// FieldError は 1 フィールド分の検証エラーです。
type FieldError struct {
	Field   string
	Kind    Kind
	Message string
}

// Errors は検出順に並んだ検証エラーの集合です。
type Errors []FieldError

// Error は error インターフェースを満たします。
func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation: no errors"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Category はエラー集合全体の分類を返します。
func (e Errors) Category() Category {
	for _, fe := range e {
		switch fe.Kind {
		case KindIllegalTransition:
			return CategoryIllegalTransition
		case KindConflict:
			return CategoryConflict
		}
	}
	return CategoryFieldValidation
}

// Is は errors.Is で分類センチネルと照合できるようにします。
func (e Errors) Is(target error) bool {
	switch target {
	case ErrFieldValidation:
		return e.Category() == CategoryFieldValidation
	case ErrConflict:
		return e.Category() == CategoryConflict
	case ErrIllegalTransition:
		return e.Category() == CategoryIllegalTransition
	}
	return false
}

// Has は指定フィールドと種類の組み合わせが含まれるか判定します。
func (e Errors) Has(field string, kind Kind) bool {
	for _, fe := range e {
		if fe.Field == field && fe.Kind == kind {
			return true
		}
	}
	return false
}

// Conflict は単一の CONFLICT エラーを生成します。
func Conflict(field, message string) Errors {
	return Errors{{Field: field, Kind: KindConflict, Message: message}}
}

// Required は単一の REQUIRED エラーを生成します。
func Required(field, message string) Errors {
	return Errors{{Field: field, Kind: KindRequired, Message: message}}
}

// IllegalTransition は単一の ILLEGAL_TRANSITION エラーを生成します。
func IllegalTransition(field, message string) Errors {
	return Errors{{Field: field, Kind: KindIllegalTransition, Message: message}}
}

// As は err から Errors を取り出します。
func As(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}
