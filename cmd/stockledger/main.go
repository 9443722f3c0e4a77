package main

import (
	"github.com/bwmarrin/snowflake"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/syedsanaulhaq/ims-v1-sub001/internal/alert"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/audit"
	auditdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/audit/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog"
	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/clock"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/config"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/events"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger"
	ledgerdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/ledger/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/migration"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/observability/logger"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/observability/metrics"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/observability/tracing"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/seed"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/server"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/settings"
	settingsdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/settings/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold"
	thresholddomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/threshold/domain"
	"github.com/syedsanaulhaq/ims-v1-sub001/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		fx.Provide(func(cfg config.Config) *metrics.LedgerMetrics {
			return metrics.LedgerWithConfig(metrics.Config{
				ServiceName: "stockledger",
				Environment: cfg.Environment,
			})
		}),
		db.Module,
		clock.Module,
		fx.Provide(events.NewOutbox),
		fx.Invoke(func(*sdktrace.TracerProvider) {}),
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if cfg.DBDriver == "postgres" {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := migration.RunMigrations(sqlDB); err != nil {
					return err
				}
			} else {
				// SQL migrations target postgres; other drivers derive the
				// schema from the models.
				if err := conn.AutoMigrate(
					&catalogdomain.Item{},
					&ledgerdomain.MovementEvent{},
					&ledgerdomain.StockRecord{},
					&settingsdomain.Setting{},
					&settingsdomain.SettingChange{},
					&thresholddomain.Override{},
					&events.StoredEvent{},
					&auditdomain.AuditLog{},
				); err != nil {
					return err
				}
			}
			if cfg.Bootstrap.SeedDefaultSettings {
				if err := seed.EnsureDefaultSettings(conn); err != nil {
					return err
				}
			}
			if cfg.Bootstrap.SeedDemoItems {
				return seed.EnsureDemoItems(conn)
			}
			return nil
		}),
		catalog.Module,
		ledger.Module,
		settings.Module,
		threshold.Module,
		alert.Module,
		audit.Module,
		server.Module,
	)
	app.Run()
}
