package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/modules/identity/infrastructure/persistence"
	"github.com/crewledger/crewledger/modules/identity/services"
	"github.com/crewledger/crewledger/pkg/composables"
	"github.com/crewledger/crewledger/pkg/configuration"
	"github.com/crewledger/crewledger/pkg/eventbus"
	"github.com/crewledger/crewledger/pkg/metrics"
)

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			db, err := goose.OpenDBWithDriver("pgx", conf.Database.ConnectionString())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			switch args[0] {
			case "up":
				return goose.Up(db, conf.MigrationsDir)
			case "down":
				return goose.Down(db, conf.MigrationsDir)
			default:
				return goose.Status(db, conf.MigrationsDir)
			}
		},
	}
	return cmd
}

func matchCommand() *cobra.Command {
	var projectID, reportID string

	cmd := &cobra.Command{
		Use:   "match <raw name>",
		Short: "Resolve a free-text name mention to an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, cleanup, err := matchingService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.MatchOrCreate(ctx, args[0], employee.MentionContext{
				ProjectID:  projectID,
				ReportDate: time.Now(),
				ReportID:   reportID,
			})
			if err != nil {
				return err
			}

			fmt.Printf("employee:   %s\n", result.EmployeeID)
			fmt.Printf("matched as: %s\n", result.MatchedName)
			fmt.Printf("confidence: %s (%s)\n", result.Confidence, result.MatchMethod)
			if result.NeedsReview {
				fmt.Println("needs review:")
				for _, s := range result.SuggestedMatches {
					fmt.Printf("  %s %s (%d%%)\n", s.PersonID, s.FullName, s.Similarity)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project the report belongs to")
	cmd.Flags().StringVar(&reportID, "report", "", "source report id")
	return cmd
}

func employeesCommand() *cobra.Command {
	var incompleteOnly bool
	var search string

	cmd := &cobra.Command{
		Use:   "employees",
		Short: "List employee records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, repo, cleanup, err := repository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			params := &employee.FindParams{Search: search}
			if incompleteOnly {
				needs := true
				params.NeedsProfileCompletion = &needs
			}

			found, err := services.NewEmployeeService(repo, quietBus()).List(ctx, params)
			if err != nil {
				return err
			}
			for _, e := range found {
				flag := ""
				if e.NeedsProfileCompletion() {
					flag = " [incomplete]"
				}
				fmt.Printf("%s  %-14s %s (%s)%s\n",
					e.PersonID(), e.EmployeeNumber(), e.FullName(), e.Status(), flag)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&incompleteOnly, "incomplete", false, "only auto-created records awaiting profile completion")
	cmd.Flags().StringVar(&search, "search", "", "substring filter on names and numbers")
	return cmd
}

func mergeCommand() *cobra.Command {
	var resolutions map[string]string
	var actor string
	var apply bool

	cmd := &cobra.Command{
		Use:   "merge <primary-id> <duplicate-id>",
		Short: "Preview or apply a duplicate-record merge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			primaryID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid primary id: %w", err)
			}
			duplicateID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid duplicate id: %w", err)
			}

			ctx, repo, cleanup, err := repository(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			conf := configuration.Use()
			svc := services.NewMergeService(repo, quietBus(), metrics.Noop(), conf.Logger())

			if !apply {
				preview, err := svc.Preview(ctx, primaryID, duplicateID)
				if err != nil {
					return err
				}
				fmt.Print(services.Describe(preview))
				return nil
			}

			merged, err := svc.Apply(ctx, primaryID, duplicateID, resolutions, actor)
			if err != nil {
				return err
			}
			fmt.Printf("merged into %s %s\n", merged.PersonID(), merged.FullName())
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "apply the merge instead of previewing it")
	cmd.Flags().StringToStringVar(&resolutions, "resolve", nil, "field=value resolutions for conflicting fields")
	cmd.Flags().StringVar(&actor, "actor", "", "who is applying the merge")
	return cmd
}

func repository(ctx context.Context) (context.Context, employee.Repository, func(), error) {
	conf := configuration.Use()
	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		return nil, nil, nil, err
	}
	return composables.WithPool(ctx, pool), persistence.NewEmployeeRepository(), pool.Close, nil
}

func matchingService(ctx context.Context) (context.Context, *services.MatchingService, func(), error) {
	ctx, repo, cleanup, err := repository(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	conf := configuration.Use()
	svc := services.NewMatchingService(repo, quietBus(), metrics.Noop(), conf.Logger(), conf.Matching.FuzzyThreshold)
	return ctx, svc, cleanup, nil
}

func quietBus() eventbus.EventBus {
	return eventbus.NewEventPublisher(configuration.Use().Logger())
}
