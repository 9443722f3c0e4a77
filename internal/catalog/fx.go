package catalog

import (
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
)
