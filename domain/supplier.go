package domain

import "time"

type Supplier struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	ContactPerson *string   `db:"contact_person" json:"contactPerson,omitempty"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Address       *string   `db:"address" json:"address,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
