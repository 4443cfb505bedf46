// Package export writes value tables and policies as plain listings and as
// tab-delimited files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"

	"github.com/sw965/tabrl"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatActions[A any](as []A) string {
	return "[" + strings.Join(lo.Map(as, func(a A, _ int) string { return fmt.Sprint(a) }), " ") + "]"
}

// ValueRows lists (s, V(s)) in the order of states.
func ValueRows[S comparable](v tabrl.StateValues[S], states []S) [][]string {
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		rows = append(rows, []string{fmt.Sprint(s), formatFloat(v[s])})
	}
	return rows
}

// PolicyRows lists (s, π(s)) in the order of states. A state without an entry
// prints as "-".
func PolicyRows[S, A comparable](pi tabrl.Policy[S, A], states []S) [][]string {
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		as, ok := pi[s]
		if !ok {
			rows = append(rows, []string{fmt.Sprint(s), "-"})
			continue
		}
		rows = append(rows, []string{fmt.Sprint(s), formatActions(as)})
	}
	return rows
}

// ActionValueRows lists ((s, a), Q(s, a)) for every visited pair, in the order of
// states and, within a state, of actionSpace(s). Pairs of other states are left out.
func ActionValueRows[S, A comparable](q tabrl.ActionValues[S, A], states []S, actionSpace func(S) []A) [][]string {
	rows := [][]string{}
	for _, s := range states {
		for _, a := range actionSpace(s) {
			value, ok := q[tabrl.StateActionPair[S, A]{State: s, Action: a}]
			if !ok {
				continue
			}
			rows = append(rows, []string{fmt.Sprint(s), fmt.Sprint(a), formatFloat(value)})
		}
	}
	return rows
}

// WriteListing prints a header line followed by one "(c1, c2, ...)" line per row.
func WriteListing(w io.Writer, header []string, rows [][]string) error {
	if _, err := fmt.Fprintf(w, "(%s)\n", strings.Join(header, ", ")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "(%s)\n", strings.Join(row, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable writes header and rows tab-delimited.
func WriteTable(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// SaveTable writes a tab-delimited file at path, replacing any existing one.
func SaveTable(path string, header []string, rows [][]string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTable(f, header, rows)
}

// WriteHistogram prints a text histogram of values with the given number of bins.
// Nothing is printed when the values do not spread over a range.
func WriteHistogram(w io.Writer, values []float64, bins int) error {
	if len(values) == 0 || slices.Min(values) == slices.Max(values) {
		return nil
	}
	h := histogram.Hist(bins, values)
	return histogram.Fprint(w, h, histogram.Linear(40))
}
