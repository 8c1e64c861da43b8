package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tentd/tentd/internal/config"
	"github.com/tentd/tentd/internal/infra/database"
	"github.com/tentd/tentd/internal/infra/repository"
	"github.com/tentd/tentd/internal/usecase"
)

func entityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage hosted entities",
	}
	cmd.AddCommand(entityCreateCmd(), entityListCmd(), entityDeleteCmd())
	return cmd
}

func openEntityUsecase() (*usecase.EntityUsecase, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database.Driver, cfg.Database.Dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return usecase.NewEntityUsecase(
		repository.NewEntityRepository(db),
		repository.NewProfileRepository(db, nil),
		cfg.Server.PublicURL,
	), nil
}

func entityCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an entity and seed its core profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := openEntityUsecase()
			if err != nil {
				return err
			}
			entity, err := uc.Create(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("created %s (%s)\n", entity.Name, uc.IdentityFor(entity.Name))
			return nil
		},
	}
}

func entityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List hosted entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := openEntityUsecase()
			if err != nil {
				return err
			}
			entities, err := uc.List(context.Background())
			if err != nil {
				return err
			}
			for _, entity := range entities {
				fmt.Printf("%d\t%s\n", entity.ID, entity.Name)
			}
			return nil
		},
	}
}

func entityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an entity and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := openEntityUsecase()
			if err != nil {
				return err
			}
			if err := uc.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}
