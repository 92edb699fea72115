// Package domain contains lab and imaging order intake. Orders carry their
// own document numbers (LAB/IMG) and a small fulfillment state machine;
// billing for the ordered service happens on the invoice, not here.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type OrderStatus string

const (
	OrderStatusOrdered    OrderStatus = "ordered"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOrdered, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an order may move between fulfillment states.
// Completed and cancelled are terminal.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusOrdered:
		return to == OrderStatusInProgress || to == OrderStatusCompleted || to == OrderStatusCancelled
	case OrderStatusInProgress:
		return to == OrderStatusCompleted || to == OrderStatusCancelled
	default:
		return false
	}
}

type LabOrder struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrderNumber string        `json:"order_number" gorm:"type:text;not null;uniqueIndex"`
	PatientID   snowflake.ID  `json:"patient_id" gorm:"not null;index"`
	EncounterID *snowflake.ID `json:"encounter_id" gorm:"index"`
	TestName    string        `json:"test_name" gorm:"type:text;not null"`
	Priority    string        `json:"priority" gorm:"type:text;not null;default:'routine'"`
	Status      OrderStatus   `json:"status" gorm:"type:text;not null;default:'ordered';index"`
	Notes       *string       `json:"notes" gorm:"type:text"`
	OrderedBy   string        `json:"ordered_by" gorm:"type:text;not null"`
	OrderedAt   time.Time     `json:"ordered_at" gorm:"not null;index"`
	CompletedAt *time.Time    `json:"completed_at"`
	CreatedAt   time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"not null"`
}

func (LabOrder) TableName() string { return "lab_orders" }

type ImagingOrder struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrderNumber string        `json:"order_number" gorm:"type:text;not null;uniqueIndex"`
	PatientID   snowflake.ID  `json:"patient_id" gorm:"not null;index"`
	EncounterID *snowflake.ID `json:"encounter_id" gorm:"index"`
	Modality    string        `json:"modality" gorm:"type:text;not null"`
	BodyPart    string        `json:"body_part" gorm:"type:text;not null"`
	Priority    string        `json:"priority" gorm:"type:text;not null;default:'routine'"`
	Status      OrderStatus   `json:"status" gorm:"type:text;not null;default:'ordered';index"`
	Notes       *string       `json:"notes" gorm:"type:text"`
	OrderedBy   string        `json:"ordered_by" gorm:"type:text;not null"`
	OrderedAt   time.Time     `json:"ordered_at" gorm:"not null;index"`
	CompletedAt *time.Time    `json:"completed_at"`
	CreatedAt   time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"not null"`
}

func (ImagingOrder) TableName() string { return "imaging_orders" }
