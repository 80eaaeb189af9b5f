package event

import (
	"context"
	"time"
)

// Type はドメインイベントの種類です。
type Type string

const (
	CompanyCreated        Type = "company_created"
	CompanyUpdated        Type = "company_updated"
	CompanyDeleted        Type = "company_deleted"
	DepartmentCreated     Type = "department_created"
	DepartmentUpdated     Type = "department_updated"
	DepartmentDeleted     Type = "department_deleted"
	EmployeeCreated       Type = "employee_created"
	EmployeeUpdated       Type = "employee_updated"
	EmployeeDeleted       Type = "employee_deleted"
	EmployeeStatusChanged Type = "employee_status_changed"
	UserSignedUp          Type = "user_signed_up"
)

// Event は書き込み完了後に発行されるドメインイベントです。
type Event struct {
	Type        Type      `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload,omitempty"`
}

// Publisher はドメインイベントの送出先です。Publish は呼び出し元をブロックしません。
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// NopPublisher はイベントを破棄します。
type NopPublisher struct{}

// Publish は何もしません。
func (NopPublisher) Publish(context.Context, Event) {}

// Recorder は発行されたイベントを保持します。テストで利用します。
type Recorder struct {
	Events []Event
}

// Publish はイベントを記録します。
func (r *Recorder) Publish(_ context.Context, e Event) {
	r.Events = append(r.Events, e)
}

// Types は記録済みイベントの種類を順に返します。
func (r *Recorder) Types() []Type {
	types := make([]Type, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}
