package sequence

import (
	"github.com/clinicore/ledger/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(service.NewService),
)
