package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kjk/roster/journal"
	"github.com/kjk/roster/store"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
)

func recordMap(r *store.Record) map[string]any {
	return map[string]any{
		"id":     r.ID(),
		"name":   r.Name,
		"email":  r.Email,
		"course": r.Course,
		"score":  r.Score(),
		"grade":  r.Grade(),
	}
}

func writeRecords(w io.Writer, format string, recs []*store.Record) error {
	switch strings.ToLower(format) {
	case "", "text":
		return writeText(w, recs)
	case "json":
		var v []map[string]any
		for _, r := range recs {
			v = append(v, recordMap(r))
		}
		d, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(pretty.Pretty(d))
		return err
	case "toon":
		var v []any
		for _, r := range recs {
			v = append(v, recordMap(r))
		}
		d, err := toon.Marshal(map[string]any{"students": v})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", d)
		return err
	}
	return fmt.Errorf("unknown format '%s'", format)
}

func writeText(w io.Writer, recs []*store.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No student records available.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tCOURSE\tSCORE\tGRADE")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%v\t%s\n", r.ID(), r.Name, r.Email, r.Course, r.Score(), r.Grade())
	}
	return tw.Flush()
}

func writeHistory(w io.Writer, recs []*journal.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOP\tID\tNAME\tSCORE\tGRADE")
	for _, r := range recs {
		id, _ := r.Get("id")
		name, _ := r.Get("name")
		score, _ := r.Get("score")
		grade, _ := r.Get("grade")
		ts := r.Timestamp.Format("2006-01-02 15:04:05")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", ts, r.Name, id, name, score, grade)
	}
	return tw.Flush()
}
