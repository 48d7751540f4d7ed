package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/model"
)

func sectionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections [filter terms...]",
		Short: "Print the workspace, optionally filtered (status:completed tag:ops due:2026-01-01..2026-01-31)",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := filter.Parse(args, filter.Criteria{}, time.Local)
			if err != nil {
				return err
			}
			return withSession(cmd, *configPath, func(ctx context.Context, rt *runtime) error {
				if err := rt.svc.Refresh(ctx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "showing cached workspace: %s\n", apperr.UserMessage(err))
				}
				printSections(cmd.OutOrStdout(), rt.svc.Filtered(criteria))
				return nil
			})
		},
	}
	return cmd
}

func sharedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shared [token]",
		Short: "Print a section opened through a share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			sec, err := rt.svc.OpenShared(cmd.Context(), args[0])
			if err != nil {
				return errors.New(apperr.UserMessage(err))
			}
			printSections(cmd.OutOrStdout(), []model.Section{sec})
			return nil
		},
	}
}

func printSections(w io.Writer, sections []model.Section) {
	if len(sections) == 0 {
		fmt.Fprintln(w, "(no sections)")
		return
	}
	for _, sec := range sections {
		fmt.Fprintf(w, "%s (%d tasks)\n", sec.Name, len(sec.Tasks))
		for _, task := range sec.Tasks {
			check := " "
			if task.IsDone {
				check = "x"
			}
			line := fmt.Sprintf("  [%s] %s [%s] %d/%d", check, task.Name, task.Priority, task.SubtaskCompleted, task.SubtaskCount)
			if task.DueDate != nil {
				line += " due:" + task.DueDate.Format(time.DateOnly)
			}
			if len(task.Tags) > 0 {
				line += " #" + strings.Join(task.Tags, " #")
			}
			fmt.Fprintln(w, line)
		}
	}
}
