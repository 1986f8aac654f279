package types

import "time"

type BaseEntity struct {
	CreatedAt *time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt *time.Time `json:"updatedAt" db:"updated_at"`
}

// SoftDelete - признак мягкого удаления: запись остаётся в таблице.
type SoftDelete struct {
	IsDeleted bool       `json:"isDeleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
	DeletedBy *string    `json:"deletedBy,omitempty" db:"deleted_by"`
}
