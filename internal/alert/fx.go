package alert

import (
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.feed",
	fx.Provide(service.NewFeed),
)
