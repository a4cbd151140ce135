package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/youvisa/pkg/domain"
)

// WriteReport prints the task overview, as a table or as JSON.
func WriteReport(w io.Writer, details []domain.TaskDetails, asJSON bool) error {
	if asJSON {
		if details == nil {
			details = []domain.TaskDetails{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	}

	if len(details) == 0 {
		_, err := fmt.Fprintln(w, "No tasks yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tUSER\tCOUNTRY\tSTATUS\tCREATED\tMISSING")
	for _, d := range details {
		missing := d.Country.RequiredDocs.Minus(domain.DocTypes(d.Documents))
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			d.Task.ID,
			d.User.Name,
			d.Country.Name,
			d.Task.Status,
			d.Task.CreatedAt.Format("2006-01-02 15:04"),
			orDash(missing.Display()),
		)
	}
	return tw.Flush()
}

// WriteCountries prints the catalogue as a table.
func WriteCountries(w io.Writer, countries []domain.Country) error {
	if len(countries) == 0 {
		_, err := fmt.Fprintln(w, "No countries registered.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOUNTRY\tREQUIRED DOCUMENTS")
	for _, c := range countries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, orDash(c.RequiredDocs.Display()))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
