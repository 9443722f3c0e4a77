package ledger

import (
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/repository"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
