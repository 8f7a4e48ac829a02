package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/bootstrap"
	"taskgate.org/internal/migrate"
	"taskgate.org/internal/obs"
	"taskgate.org/internal/store/pg"
	"taskgate.org/ops/migrations"
)

func main() {
	log.SetFlags(0)
	var (
		dsn           = flag.String("dsn", os.Getenv("TASKGATE_PG_DSN"), "PostgreSQL DSN")
		adminEmail    = flag.String("super-admin-email", envOr("TASKGATE_SEED_SUPER_ADMIN_EMAIL", "superadmin@platform.com"), "Super admin email for seed")
		adminPassword = flag.String("super-admin-password", os.Getenv("TASKGATE_SEED_SUPER_ADMIN_PASSWORD"), "Super admin password for seed")
		skipOrgs      = flag.Bool("no-default-orgs", false, "Do not seed the default organizations")
		bcryptCost    = flag.Int("bcrypt-cost", auth.DefaultBcryptCost, "bcrypt work factor for seeded passwords")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or TASKGATE_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), migrations.FS())

	switch flag.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			fmt.Println("applied", name)
		}
		if len(applied) == 0 && err == nil {
			fmt.Println("up to date")
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if errors.Is(err, migrate.ErrNothingApplied) {
			fmt.Println("nothing to roll back")
			err = nil
		} else if err == nil {
			fmt.Println("rolled back", name)
		}
	case "seed":
		opts := bootstrap.Options{
			SuperAdminEmail:    *adminEmail,
			SuperAdminPassword: *adminPassword,
		}
		if !*skipOrgs {
			opts.Organizations = bootstrap.DefaultOrganizations
		}
		var report bootstrap.Report
		report, err = bootstrap.Seed(ctx, store, auth.NewCredentialManager(*bcryptCost), opts, obs.Logger())
		for _, name := range report.OrganizationsCreated {
			fmt.Println("seeded organization", name)
		}
		if report.SuperAdminCreated {
			fmt.Println("seeded super admin", auth.NormalizeEmail(*adminEmail))
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
