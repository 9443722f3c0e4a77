package settings

import (
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/repository"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
