package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/qa"
	"github.com/IshaanNene/medfeed/internal/types"
)

var askOffline bool

// openQA opens the QA store and builds the service around it.
func openQA(ctx context.Context, cfg *config.Config, logger *slog.Logger, withAI bool) (*qa.Service, *qa.SQLiteStore, error) {
	store, err := qa.OpenSQLite(ctx, cfg.QA.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open qa store: %w", err)
	}

	opts := []qa.Option{qa.WithThreshold(cfg.QA.Threshold)}
	if withAI {
		gen, err := newGenerator(cfg, logger)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("create LLM client: %w", err)
		}
		if gen != nil {
			opts = append(opts, qa.WithGenerator(gen))
		}
	}
	return qa.NewService(store, logger, opts...), store, nil
}

// askCmd creates the "ask" subcommand.
func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the QA store, falling back to the LLM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, store, err := openQA(ctx, cfg, logger, !askOffline)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := svc.Answer(ctx, strings.Join(args, " "))
			switch {
			case errors.Is(err, qa.ErrQuestionRejected):
				return fmt.Errorf("the question cannot be processed: %w", err)
			case errors.Is(err, types.ErrNoAnswer):
				return fmt.Errorf("no stored answer matches and AI is disabled")
			case err != nil:
				return err
			}

			fmt.Println(res.Answer)
			if res.Matched != nil {
				fmt.Printf("\n(%s answer, %.0f%% match with %q)\n", res.Source, res.Matched.Score, res.Matched.Pair.Question)
			} else {
				fmt.Printf("\n(%s answer)\n", res.Source)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&askOffline, "offline", false, "never call the LLM")
	return cmd
}

// qaCmd creates the "qa" command group for managing stored pairs.
func qaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qa",
		Short: "Manage the question/answer store",
	}
	cmd.AddCommand(qaAddCmd(), qaListCmd(), qaDeleteCmd(), qaExplainCmd())
	return cmd
}

func qaAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [question] [answer]",
		Short: "Store or replace an answer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			svc, store, err := openQA(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := svc.Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("stored pair #%d\n", id)
			return nil
		},
	}
}

func qaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := qa.OpenSQLite(cmd.Context(), cfg.QA.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			pairs, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range pairs {
				fmt.Printf("#%-4d %s\n      %s\n", p.ID, p.Question, truncate(p.Answer, 120))
			}
			fmt.Printf("\n%d pairs\n", len(pairs))
			return nil
		},
	}
}

func qaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a stored pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := qa.OpenSQLite(cmd.Context(), cfg.QA.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("deleted pair #%d\n", id)
			return nil
		},
	}
}

func qaExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [question]",
		Short: "Show how a question scores against every stored pair",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			svc, store, err := openQA(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer store.Close()

			exp, err := svc.Explain(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Printf("Question:   %s\n", exp.Question)
			fmt.Printf("Normalized: %s\n", exp.Normalized)
			fmt.Printf("Threshold:  %.0f\n\n", exp.Threshold)
			for _, c := range exp.Candidates {
				fmt.Printf("%6.1f  #%-4d %s\n        %s\n", c.Score, c.Pair.ID, c.Pair.Question, c.Normalized)
			}
			if exp.Best != nil {
				fmt.Printf("\nBest match: #%d (%.1f)\n", exp.Best.Pair.ID, exp.Best.Score)
			} else {
				fmt.Printf("\nNo match at or above the threshold.\n")
			}
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
