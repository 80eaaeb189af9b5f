package employee

import (
	"fmt"
	"strings"

	"github.com/ogurasousui/employee-management/internal/core/validation"
)

var transitions = map[Status][]Status{
	StatusApplicationReceived: {StatusInterviewScheduled, StatusNotAccepted},
	StatusInterviewScheduled:  {StatusHired, StatusNotAccepted},
	StatusHired:               {},
	StatusNotAccepted:         {},
}

// Valid は定義済みステータスか判定します。
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal はこれ以上遷移できないステータスか判定します。
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// NextStatuses は from から遷移可能なステータスを返します。
func NextStatuses(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition は from から to への変更が許可されるか判定します。同一ステータスは遷移とみなしません。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition は遷移不可の場合に ILLEGAL_TRANSITION エラーを返します。
func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}

	allowed := "none"
	if next := NextStatuses(from); len(next) > 0 {
		names := make([]string, 0, len(next))
		for _, s := range next {
			names = append(names, string(s))
		}
		allowed = strings.Join(names, ", ")
	}

	msg := fmt.Sprintf("Cannot change status from '%s' to '%s'. Allowed transitions: %s", from, to, allowed)
	if from.IsTerminal() {
		msg += fmt.Sprintf(" ('%s' is a final status)", from)
	}
	return validation.IllegalTransition(FieldStatus, msg)
}
