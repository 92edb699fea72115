// Package seed loads the billing code reference data on first boot.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	"github.com/clinicore/ledger/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(EnsureCatalog),
)

type procedureSeed struct {
	code        string
	description string
	category    string
	price       string
}

type diagnosisSeed struct {
	code        string
	description string
	category    string
}

var procedureSeeds = []procedureSeed{
	{"99203", "New patient office visit, 30-44 minutes", "evaluation", "150.00"},
	{"99213", "Established patient office visit, 20-29 minutes", "evaluation", "110.00"},
	{"99214", "Established patient office visit, 30-39 minutes", "evaluation", "165.00"},
	{"80048", "Basic metabolic panel", "laboratory", "25.00"},
	{"85025", "Complete blood count with differential", "laboratory", "30.00"},
	{"83036", "Hemoglobin A1c", "laboratory", "35.00"},
	{"71046", "Chest X-ray, 2 views", "imaging", "90.00"},
	{"73030", "Shoulder X-ray, 2+ views", "imaging", "85.00"},
	{"90471", "Immunization administration", "procedure", "40.00"},
	{"12001", "Simple wound repair, 2.5 cm or less", "procedure", "175.00"},
}

var diagnosisSeeds = []diagnosisSeed{
	{"E11.9", "Type 2 diabetes mellitus without complications", "endocrine"},
	{"I10", "Essential (primary) hypertension", "circulatory"},
	{"J06.9", "Acute upper respiratory infection, unspecified", "respiratory"},
	{"M54.50", "Low back pain, unspecified", "musculoskeletal"},
	{"R10.9", "Unspecified abdominal pain", "symptoms"},
	{"Z00.00", "General adult medical examination", "factors"},
}

// EnsureCatalog inserts the starter procedure and diagnosis codes once.
// Existing codes are left alone so local edits survive restarts.
func EnsureCatalog(conn *gorm.DB, log *zap.Logger, node *snowflake.Node) error {
	ctx := context.Background()
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range procedureSeeds {
			var existing catalogdomain.ProcedureCode
			err := tx.Where("code = ?", s.code).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			price, err := decimal.NewFromString(s.price)
			if err != nil {
				return err
			}
			if err := tx.Create(&catalogdomain.ProcedureCode{
				ID:          node.Generate(),
				Code:        s.code,
				Description: s.description,
				Category:    s.category,
				UnitPrice:   price,
				IsActive:    true,
			}).Error; err != nil && !db.IsDuplicateKeyErr(err) {
				return err
			}
		}

		for _, s := range diagnosisSeeds {
			var existing catalogdomain.DiagnosisCode
			err := tx.Where("code = ?", s.code).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.Create(&catalogdomain.DiagnosisCode{
				ID:          node.Generate(),
				Code:        s.code,
				Description: s.description,
				Category:    s.category,
				IsActive:    true,
			}).Error; err != nil && !db.IsDuplicateKeyErr(err) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("catalog seed failed", zap.Error(err))
		return err
	}
	return nil
}
