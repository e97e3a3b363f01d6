package domain

import "time"

type RequestType string

const (
	RequestStock        RequestType = "stock"
	RequestPrescription RequestType = "prescription"
	RequestReturn       RequestType = "return"
	RequestOther        RequestType = "other"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// CanTransition reports whether a request may move from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestApproved || next == RequestRejected
	case RequestApproved:
		return next == RequestCompleted
	}
	return false
}

type Request struct {
	ID          int64         `db:"id" json:"id"`
	UserID      int64         `db:"user_id" json:"userId"`
	Type        RequestType   `db:"type" json:"type"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Priority    Priority      `db:"priority" json:"priority"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

type RequestUpdate struct {
	Type        *RequestType
	Title       *string
	Description *string
	Priority    *Priority
	Status      *RequestStatus
}

// RequestFilter narrows a request listing. Zero values match everything.
type RequestFilter struct {
	UserID   int64
	Status   RequestStatus
	Priority Priority
}
