package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/clock"
	orderdomain "github.com/clinicore/ledger/internal/order/domain"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultPriority = "routine"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Sequence sequencedomain.Allocator
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	sequence sequencedomain.Allocator
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		sequence: p.Sequence,
	}
}

func (s *Service) CreateLabOrder(ctx context.Context, req orderdomain.CreateLabOrderRequest) (orderdomain.LabOrder, error) {
	if req.PatientID == 0 {
		return orderdomain.LabOrder{}, orderdomain.ErrInvalidPatient
	}
	if strings.TrimSpace(req.TestName) == "" {
		return orderdomain.LabOrder{}, orderdomain.ErrMissingTestName
	}

	now := s.clock.Now()
	order := orderdomain.LabOrder{
		ID:          s.genID.Generate(),
		PatientID:   req.PatientID,
		EncounterID: req.EncounterID,
		TestName:    req.TestName,
		Priority:    priorityOrDefault(req.Priority),
		Status:      orderdomain.OrderStatusOrdered,
		OrderedBy:   req.OrderedBy,
		OrderedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if v := req.Notes; v != "" {
		order.Notes = &v
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.sequence.NextInTx(ctx, tx, sequencedomain.KindLabOrder, 0)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return tx.Create(&order).Error
	})
	if err != nil {
		return orderdomain.LabOrder{}, err
	}

	s.log.Info("lab order created", zap.String("order_number", order.OrderNumber))
	return order, nil
}

func (s *Service) UpdateLabOrderStatus(ctx context.Context, id snowflake.ID, status orderdomain.OrderStatus) (orderdomain.LabOrder, error) {
	if !status.Valid() {
		return orderdomain.LabOrder{}, orderdomain.ErrInvalidStatus
	}

	var order orderdomain.LabOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orderdomain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if !orderdomain.CanTransition(order.Status, status) {
			return orderdomain.ErrInvalidTransition
		}

		now := s.clock.Now()
		order.Status = status
		order.UpdatedAt = now
		if status == orderdomain.OrderStatusCompleted {
			order.CompletedAt = &now
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		return orderdomain.LabOrder{}, err
	}
	return order, nil
}

func (s *Service) ListLabOrders(ctx context.Context, req orderdomain.ListOrderRequest) ([]orderdomain.LabOrder, error) {
	stmt, err := s.listStmt(ctx, &orderdomain.LabOrder{}, req)
	if err != nil {
		return nil, err
	}
	var orders []orderdomain.LabOrder
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) CreateImagingOrder(ctx context.Context, req orderdomain.CreateImagingOrderRequest) (orderdomain.ImagingOrder, error) {
	if req.PatientID == 0 {
		return orderdomain.ImagingOrder{}, orderdomain.ErrInvalidPatient
	}
	if strings.TrimSpace(req.Modality) == "" {
		return orderdomain.ImagingOrder{}, orderdomain.ErrMissingModality
	}
	if strings.TrimSpace(req.BodyPart) == "" {
		return orderdomain.ImagingOrder{}, orderdomain.ErrMissingBodyPart
	}

	now := s.clock.Now()
	order := orderdomain.ImagingOrder{
		ID:          s.genID.Generate(),
		PatientID:   req.PatientID,
		EncounterID: req.EncounterID,
		Modality:    req.Modality,
		BodyPart:    req.BodyPart,
		Priority:    priorityOrDefault(req.Priority),
		Status:      orderdomain.OrderStatusOrdered,
		OrderedBy:   req.OrderedBy,
		OrderedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if v := req.Notes; v != "" {
		order.Notes = &v
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.sequence.NextInTx(ctx, tx, sequencedomain.KindImagingOrder, 0)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return tx.Create(&order).Error
	})
	if err != nil {
		return orderdomain.ImagingOrder{}, err
	}

	s.log.Info("imaging order created", zap.String("order_number", order.OrderNumber))
	return order, nil
}

func (s *Service) UpdateImagingOrderStatus(ctx context.Context, id snowflake.ID, status orderdomain.OrderStatus) (orderdomain.ImagingOrder, error) {
	if !status.Valid() {
		return orderdomain.ImagingOrder{}, orderdomain.ErrInvalidStatus
	}

	var order orderdomain.ImagingOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orderdomain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if !orderdomain.CanTransition(order.Status, status) {
			return orderdomain.ErrInvalidTransition
		}

		now := s.clock.Now()
		order.Status = status
		order.UpdatedAt = now
		if status == orderdomain.OrderStatusCompleted {
			order.CompletedAt = &now
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		return orderdomain.ImagingOrder{}, err
	}
	return order, nil
}

func (s *Service) ListImagingOrders(ctx context.Context, req orderdomain.ListOrderRequest) ([]orderdomain.ImagingOrder, error) {
	stmt, err := s.listStmt(ctx, &orderdomain.ImagingOrder{}, req)
	if err != nil {
		return nil, err
	}
	var orders []orderdomain.ImagingOrder
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) listStmt(ctx context.Context, model any, req orderdomain.ListOrderRequest) (*gorm.DB, error) {
	stmt := s.db.WithContext(ctx).Model(model)
	if req.PatientID != nil {
		stmt = stmt.Where("patient_id = ?", *req.PatientID)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, orderdomain.ErrInvalidStatus
		}
		stmt = stmt.Where("status = ?", *req.Status)
	}
	return stmt.Order("ordered_at DESC, created_at DESC"), nil
}

func priorityOrDefault(priority string) string {
	if strings.TrimSpace(priority) == "" {
		return defaultPriority
	}
	return priority
}
