package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/kjk/roster/backup"
	"github.com/kjk/roster/journal"
	"github.com/kjk/roster/store"
	"github.com/spf13/cobra"
)

var (
	listFormat string
	sortAsc    bool
	byID       int
)

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id '%s'", s)
	}
	return id, nil
}

// parseFields parses NAME EMAIL COURSE SCORE
func parseFields(args []string) (store.Fields, error) {
	score, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return store.Fields{}, fmt.Errorf("invalid score '%s'", args[3])
	}
	return store.Fields{
		Name:   args[0],
		Email:  args[1],
		Course: args[2],
		Score:  score,
	}, nil
}

var addCmd = &cobra.Command{
	Use:   "add ID NAME EMAIL COURSE SCORE",
	Short: "Add a student",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		f, err := parseFields(args[1:])
		if err != nil {
			return err
		}
		r := store.NewRecord(id, f.Name, f.Email, f.Course, f.Score)
		if err = students.Add(r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d, grade %s\n", r.ID(), r.Grade())
		return save()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all students",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeRecords(cmd.OutOrStdout(), listFormat, students.Records())
	},
}

func findRecord(cmd *cobra.Command, args []string) (*store.Record, error) {
	if cmd.Flags().Changed("id") {
		return students.FindByKey(byID)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("provide NAME or --id")
	}
	return students.FindByName(args[0])
}

var findCmd = &cobra.Command{
	Use:   "find [NAME]",
	Short: "Find a student by name (case-insensitive) or by --id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := findRecord(cmd, args)
		if err != nil {
			return err
		}
		return writeRecords(cmd.OutOrStdout(), listFormat, []*store.Record{r})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID NAME EMAIL COURSE SCORE",
	Short: "Replace name, email, course and score of a student",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		f, err := parseFields(args[1:])
		if err != nil {
			return err
		}
		if err = students.Update(id, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %d\n", id)
		return save()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [NAME]",
	Short: "Delete the first student with a given name or --id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := store.Key(byID)
		if !cmd.Flags().Changed("id") {
			if len(args) != 1 {
				return fmt.Errorf("provide NAME or --id")
			}
			c = store.Name(args[0])
		}
		r, err := students.Delete(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d (%s)\n", r.ID(), r.Name)
		return save()
	},
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort students by score (highest first unless --asc) and save the order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		students.SortByScore(!sortAsc)
		if err := writeRecords(cmd.OutOrStdout(), listFormat, students.Records()); err != nil {
			return err
		}
		return save()
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show attributes of the data file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fi, err := store.Stat(cfg.DataFile)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "File Name: %s\n", fi.Name)
		fmt.Fprintf(w, "Absolute Path: %s\n", fi.AbsPath)
		fmt.Fprintf(w, "Writable: %v\n", fi.Writable)
		fmt.Fprintf(w, "Readable: %v\n", fi.Readable)
		fmt.Fprintf(w, "File Size: %d bytes\n", fi.Size)
		fmt.Fprintf(w, "Compressed: %v\n", fi.Compressed)
		fmt.Fprintf(w, "Records: %d\n", students.Count())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show changes recorded in the journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JournalFile == "" {
			return fmt.Errorf("journal_file is not configured")
		}
		f, err := os.Open(cfg.JournalFile)
		if err != nil {
			return err
		}
		defer f.Close()
		recs, err := journal.ReadAll(f)
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), recs)
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the data file to / from S3-compatible storage",
}

func backupClient(ctx context.Context) (*backup.Client, error) {
	return backup.New(ctx, &cfg.Backup)
}

var backupPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the data file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := backupClient(ctx)
		if err != nil {
			return err
		}
		if err = save(); err != nil {
			return err
		}
		remote, err := c.Push(ctx, cfg.DataFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", remote)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := backupClient(ctx)
		if err != nil {
			return err
		}
		names, err := c.List(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var backupPullCmd = &cobra.Command{
	Use:   "pull [NAME]",
	Short: "Replace the data file with a backup (latest if NAME is not given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := backupClient(ctx)
		if err != nil {
			return err
		}
		var remote string
		if len(args) == 1 {
			remote = args[0]
		} else if remote, err = c.Latest(ctx); err != nil {
			return err
		}
		if err = c.Pull(ctx, remote, cfg.DataFile); err != nil {
			return err
		}
		// validate what we got
		if err = students.Load(cfg.DataFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s, %d records\n", remote, students.Count())
		return nil
	},
}

var backupRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := backupClient(ctx)
		if err != nil {
			return err
		}
		if err = c.Remove(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

func addCommands(root *cobra.Command) {
	for _, c := range []*cobra.Command{listCmd, findCmd, sortCmd} {
		c.Flags().StringVar(&listFormat, "format", "text", "output format: text, json or toon")
	}
	findCmd.Flags().IntVar(&byID, "id", 0, "find by id")
	deleteCmd.Flags().IntVar(&byID, "id", 0, "delete by id")
	sortCmd.Flags().BoolVar(&sortAsc, "asc", false, "lowest score first")

	backupCmd.AddCommand(backupPushCmd, backupListCmd, backupPullCmd, backupRmCmd)
	root.AddCommand(addCmd, listCmd, findCmd, updateCmd, deleteCmd, sortCmd, infoCmd, historyCmd, backupCmd)
}
