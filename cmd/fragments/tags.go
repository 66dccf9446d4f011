package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/fragments/internal/app"
	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/storage"
	"github.com/pders01/fragments/internal/tags"
	"github.com/pders01/fragments/internal/validation"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List and edit the saved topics",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all topics and their selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTagStore(func(store *tags.Store) error {
			printTags(cmd.OutOrStdout(), store.Tags())
			return nil
		})
	},
}

var tagsToggleCmd = &cobra.Command{
	Use:   "toggle <name>",
	Short: "Select or deselect a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTagStore(func(store *tags.Store) error {
			tag, ok := store.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%q: %w", args[0], tags.ErrNotFound)
			}
			updated, err := store.Toggle(tag.ID)
			if err != nil {
				return err
			}
			state := "deselected"
			if updated.IsSelected {
				state = "selected"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", updated.Name, state)
			return nil
		})
	},
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a custom topic (selected)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTagStore(func(store *tags.Store) error {
			tag, err := store.AddCustom(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", tag.Name)
			return nil
		})
	},
}

var tagsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a custom topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTagStore(func(store *tags.Store) error {
			tag, ok := store.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%q: %w", args[0], tags.ErrNotFound)
			}
			if !tag.IsCustom {
				return fmt.Errorf("%q is not a custom topic; use toggle to deselect it", tag.Name)
			}
			if err := store.RemoveCustom(tag.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", tag.Name)
			return nil
		})
	},
}

var tagsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget custom topics and selections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTagStore(func(store *tags.Store) error {
			defaults, err := store.Reset()
			if err != nil {
				return err
			}
			printTags(cmd.OutOrStdout(), defaults)
			return nil
		})
	},
}

var tagsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add the topics the news server knows about",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		session, err := app.Open(cfg)
		if err != nil {
			return err
		}
		defer session.Close()

		session.Tags().Load()
		ctx := cmd.Context()
		if cfg.API.HTTPTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.API.HTTPTimeout)
			defer cancel()
		}
		added, err := session.SyncServerTags(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d topics from %s\n", added, cfg.API.BaseURL)
		return nil
	},
}

func init() {
	tagsCmd.AddCommand(tagsListCmd, tagsToggleCmd, tagsAddCmd, tagsRemoveCmd, tagsResetCmd, tagsSyncCmd)
}

// withTagStore opens the database, runs fn against the tag store and closes
// the database again.
func withTagStore(fn func(*tags.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runWithTagStore(cfg, fn)
}

func runWithTagStore(cfg *config.Config, fn func(*tags.Store) error) error {
	dbPath, err := validation.NewFilePathValidator().ValidateFile(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	db, err := storage.NewStoreWithTimeout(dbPath, cfg.Database.Timeout)
	if err != nil {
		return err
	}
	defer db.Close()

	store := tags.NewStore(db)
	store.Load()
	return fn(store)
}

func printTags(w io.Writer, all []tags.Tag) {
	for _, t := range all {
		mark := "[ ]"
		if t.IsSelected {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, t.Name)
		if t.IsCustom {
			line += " (custom)"
		}
		fmt.Fprintln(w, line)
	}
}
