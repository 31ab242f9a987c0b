package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/catfactsnode/catfacts/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func printFacts(items []factPayload) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			item.Status,
			item.Author,
			item.Timestamp,
			item.Text,
		})
	}
	printTable([]string{"ID", "STATUS", "AUTHOR", "SUBMITTED_AT", "TEXT"}, rows)
}

func printStats(counts domain.StatusCounts) {
	printKV([][2]string{
		{"pending", strconv.FormatInt(counts.Pending, 10)},
		{"voting", strconv.FormatInt(counts.Voting, 10)},
		{"approved", strconv.FormatInt(counts.Approved, 10)},
	})
}
