package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	mobilePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

// Collector はフィールド検証エラーを短絡せずに蓄積します。
type Collector struct {
	errs Errors
}

// Add はエラーを 1 件追加します。
func (c *Collector) Add(field string, kind Kind, message string) {
	c.errs = append(c.errs, FieldError{Field: field, Kind: kind, Message: message})
}

// Failed は指定フィールドにエラーが記録済みか判定します。
func (c *Collector) Failed(field string) bool {
	for _, fe := range c.errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Err は蓄積済みエラーを返します。エラーがなければ nil です。
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	out := make(Errors, len(c.errs))
	copy(out, c.errs)
	return out
}

// Text は前後空白を除去し、空と最小文字数を検証します。minLen が 0 以下なら長さは見ません。
func (c *Collector) Text(field, label, raw string, minLen int) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		c.Add(field, KindEmpty, label+" cannot be empty.")
		return trimmed
	}
	if minLen > 0 && utf8.RuneCountInString(trimmed) < minLen {
		c.Add(field, KindTooShort, label+" must be at least "+strconv.Itoa(minLen)+" characters long.")
	}
	return trimmed
}

// MaxLen は文字数の上限を検証します。同じフィールドで既に失敗していれば何もしません。
func (c *Collector) MaxLen(field, value string, maxLen int) {
	if c.Failed(field) || utf8.RuneCountInString(value) <= maxLen {
		return
	}
	c.Add(field, KindTooLong, "Ensure this field has no more than "+strconv.Itoa(maxLen)+" characters.")
}

// Email はメールアドレスを検証し、小文字化した値を返します。
func (c *Collector) Email(field, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		c.Add(field, KindRequired, "Email address is required.")
		return trimmed
	}
	if !emailPattern.MatchString(trimmed) {
		c.Add(field, KindInvalidFormat, "Enter a valid email address.")
		return trimmed
	}
	return strings.ToLower(trimmed)
}

// Mobile は国際形式の電話番号を検証します。大文字小文字は変換しません。
func (c *Collector) Mobile(field, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		c.Add(field, KindRequired, "Mobile number is required.")
		return trimmed
	}
	if !mobilePattern.MatchString(trimmed) {
		c.Add(field, KindInvalidFormat, "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed.")
	}
	return trimmed
}

// Reference は参照 ID の必須チェックを行います。
func (c *Collector) Reference(field, label, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		c.Add(field, KindRequired, label+" is required.")
	}
	return trimmed
}

// NotFuture は日付が today より後でないことを検証します。
func (c *Collector) NotFuture(field, label string, value *time.Time, today time.Time) {
	if value == nil {
		return
	}
	if DateOf(*value).After(DateOf(today)) {
		c.Add(field, KindFutureDate, label+" cannot be in the future.")
	}
}

// DateOf は時刻を暦日 (UTC 0 時) に切り詰めます。ロケーションの壁時計上の日付を採用します。
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween は from から to までの経過日数を返します。
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
