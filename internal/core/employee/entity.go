package employee

import (
	"time"

	"github.com/ogurasousui/employee-management/internal/core/validation"
)

// Status は採用ワークフロー上の従業員ステータスです。
type Status string

const (
	StatusApplicationReceived Status = "application_received"
	StatusInterviewScheduled  Status = "interview_scheduled"
	StatusHired               Status = "hired"
	StatusNotAccepted         Status = "not_accepted"
)

// Statuses はワークフロー順に並んだ全ステータスです。
var Statuses = []Status{StatusApplicationReceived, StatusInterviewScheduled, StatusHired, StatusNotAccepted}

// Employee は従業員エンティティです。
type Employee struct {
	ID             string
	CompanyID      string
	CompanyName    string
	DepartmentID   string
	DepartmentName string
	Status         Status
	Name           string
	Email          string
	Mobile         string
	Address        string
	Designation    string
	// HiredOn は Status が hired のときのみ値を持ちます。
	HiredOn   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DaysEmployed は today 時点の在籍日数を返します。採用済みでない場合は nil です。
func (e *Employee) DaysEmployed(today time.Time) *int {
	if e == nil || e.Status != StatusHired || e.HiredOn == nil {
		return nil
	}
	days := validation.DaysBetween(*e.HiredOn, today)
	return &days
}
