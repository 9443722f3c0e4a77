package threshold

import (
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/repository"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/service"
	"go.uber.org/fx"
)

var Module = fx.Module("threshold.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
