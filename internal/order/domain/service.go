package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateLabOrderRequest struct {
	PatientID   snowflake.ID
	EncounterID *snowflake.ID
	TestName    string
	Priority    string
	Notes       string
	OrderedBy   string
}

type CreateImagingOrderRequest struct {
	PatientID   snowflake.ID
	EncounterID *snowflake.ID
	Modality    string
	BodyPart    string
	Priority    string
	Notes       string
	OrderedBy   string
}

type ListOrderRequest struct {
	PatientID *snowflake.ID
	Status    *OrderStatus
}

type Service interface {
	CreateLabOrder(ctx context.Context, req CreateLabOrderRequest) (LabOrder, error)
	UpdateLabOrderStatus(ctx context.Context, id snowflake.ID, status OrderStatus) (LabOrder, error)
	ListLabOrders(ctx context.Context, req ListOrderRequest) ([]LabOrder, error)

	CreateImagingOrder(ctx context.Context, req CreateImagingOrderRequest) (ImagingOrder, error)
	UpdateImagingOrderStatus(ctx context.Context, id snowflake.ID, status OrderStatus) (ImagingOrder, error)
	ListImagingOrders(ctx context.Context, req ListOrderRequest) ([]ImagingOrder, error)
}

var (
	ErrOrderNotFound     = errors.New("order_not_found")
	ErrInvalidPatient    = errors.New("invalid_patient")
	ErrMissingTestName   = errors.New("missing_test_name")
	ErrMissingModality   = errors.New("missing_modality")
	ErrMissingBodyPart   = errors.New("missing_body_part")
	ErrInvalidStatus     = errors.New("invalid_order_status")
	ErrInvalidTransition = errors.New("invalid_order_transition")
)
