package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kjk/roster/config"
	"github.com/kjk/roster/journal"
	"github.com/kjk/roster/log"
	"github.com/kjk/roster/store"
	"github.com/spf13/cobra"
)

var (
	// global flags
	configPath string
	dataPath   string
	verbose    bool

	cfg      *config.Config
	students *store.Store
	jrnl     *journal.File
)

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "roster manages student records kept in a flat file",
	Long: `roster keeps student records (id, name, email, course, score, grade)
in a comma-separated text file, one record per line.

Every command loads the file, performs one operation and, if the
operation changed anything, saves the file back.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if dataPath != "" {
		cfg.DataFile = dataPath
	}
	log.Verbose = verbose || cfg.Verbose
	log.Out = os.Stderr
	log.Init(&log.Config{Dir: cfg.LogDir})

	tbl, err := cfg.GradeTable()
	if err != nil {
		return err
	}
	students = store.New(tbl)
	students.Codec.NoGrade = cfg.NoGradeColumn
	students.Progress = func(op string, done, total int) {
		if total > 0 && done == total {
			log.Verbosef("%s: %d records\n", op, total)
		}
	}
	students.OnMalformed = func(err error, line string) {
		log.Logf("warning: %s: skipping '%s'\n", err, line)
		log.Event("roster.malformed", "error", err.Error())
	}

	timeStart := time.Now()
	if err = students.Load(cfg.DataFile); err != nil {
		return err
	}
	log.EventWithDuration("roster.load", time.Since(timeStart), "path", cfg.DataFile, "count", students.Count())

	if cfg.JournalFile != "" {
		if jrnl, err = journal.OpenFile(cfg.JournalFile); err != nil {
			return err
		}
	}
	students.OnChange = recordChange
	return nil
}

// release closes the journal and log files. It runs after every command,
// including ones that failed in setup or RunE.
func release() error {
	err := jrnl.Close()
	jrnl = nil
	log.Close()
	return err
}

// run executes the command line in args
func run(args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if errClose := release(); err == nil {
		err = errClose
	}
	return err
}

// recordChange appends a change to the journal and the events log
func recordChange(op string, r *store.Record) {
	log.Event("student."+op, "id", r.ID(), "name", r.Name, "score", r.Score())
	if jrnl == nil {
		return
	}
	jr := changeRecord(op, r)
	log.IfErrf(jrnl.Write(jr), "journal: %s", op)
}

func changeRecord(op string, r *store.Record) *journal.Record {
	jr := &journal.Record{Name: op}
	_ = jr.Append(
		"id", r.ID(),
		"name", r.Name,
		"email", r.Email,
		"course", r.Course,
		"score", r.Score(),
		"grade", r.Grade(),
	)
	return jr
}

func save() error {
	timeStart := time.Now()
	if err := students.Save(cfg.DataFile); err != nil {
		return err
	}
	log.EventWithDuration("roster.save", time.Since(timeStart), "path", cfg.DataFile, "count", students.Count())
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "roster.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "data file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	addCommands(rootCmd)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
