// Package migration owns the schema. gorm's migrator keeps the table set in
// step with the domain models on boot; there is no separate migration file set.
package migration

import (
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	claimdomain "github.com/clinicore/ledger/internal/claim/domain"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	orderdomain "github.com/clinicore/ledger/internal/order/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

func Run(db *gorm.DB, log *zap.Logger) error {
	models := []any{
		&sequencedomain.DocumentSequence{},
		&catalogdomain.ProcedureCode{},
		&catalogdomain.DiagnosisCode{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Payment{},
		&claimdomain.InsuranceClaim{},
		&orderdomain.LabOrder{},
		&orderdomain.ImagingOrder{},
		&auditdomain.AuditLog{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return err
	}
	log.Info("schema up to date", zap.Int("models", len(models)))
	return nil
}
