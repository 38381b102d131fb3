package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepacademy/course-access/internal/audit"
	auditpg "github.com/stepacademy/course-access/internal/audit/postgres"
	"github.com/stepacademy/course-access/internal/core/events"
	"github.com/stepacademy/course-access/internal/entitlement"
	entitlementpg "github.com/stepacademy/course-access/internal/entitlement/postgres"
	"github.com/stepacademy/course-access/internal/product"
	productpg "github.com/stepacademy/course-access/internal/product/postgres"
	"github.com/stepacademy/course-access/pkg/logger"
)

// sweepCmd runs one expiry sweep and exits. The server runs the same sweep on
// a schedule; this command exists for operators and cron-outside-the-process
// setups.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue entitlements once and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		gormDB, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		lg := logger.LoggerWrapper()
		auditService := audit.NewService(auditpg.NewAuditRepository(gormDB), lg)
		productService := product.NewService(productpg.NewProductRepository(gormDB), lg)
		engine := entitlement.NewService(
			entitlementpg.NewEntitlementRepository(gormDB),
			productService,
			auditService,
			events.NewEventBus(lg),
			lg,
		)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		count, err := engine.SweepExpired(ctx, time.Now().UTC())
		if err != nil {
			log.Fatalf("sweep failed: %v", err)
		}
		fmt.Printf("expired %d entitlements\n", count)
	},
}
