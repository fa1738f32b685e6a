package risk

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func greek(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	return table
}

// RenderReports writes one row per report. Failed valuations show their
// error in place of the figures.
func RenderReports(w io.Writer, reports []Report) {
	table := newTable(w, []string{"Strategy", "Legs", "Net cost", "Value", "P&L", "Delta", "Gamma", "Theta", "Vega", "Rho", "Breakevens"})

	for _, r := range reports {
		if r.Error != "" {
			table.Append([]string{r.Name, fmt.Sprint(r.Legs), money(r.NetCost), "error: " + r.Error, "", "", "", "", "", "", ""})
			continue
		}

		be := make([]string, len(r.Breakevens))
		for i, b := range r.Breakevens {
			be[i] = money(b)
		}

		table.Append([]string{
			r.Name,
			fmt.Sprint(r.Legs),
			money(r.NetCost),
			money(r.Value),
			money(r.Profit),
			greek(r.Greeks.Delta),
			greek(r.Greeks.Gamma),
			greek(r.Greeks.Theta),
			greek(r.Greeks.Vega),
			greek(r.Greeks.Rho),
			strings.Join(be, " "),
		})
	}

	table.Render()
}

// RenderProfile writes the expiry payoff table of a profile
func RenderProfile(w io.Writer, p Profile) {
	header := []string{"Price", "Value at expiry", "P&L at expiry"}
	if p.ModelProfits != nil {
		header = append(header, "P&L today")
	}
	table := newTable(w, header)

	for i, price := range p.Prices {
		row := []string{money(price), money(p.Values[i]), money(p.Profits[i])}
		if p.ModelProfits != nil {
			row = append(row, money(p.ModelProfits[i]))
		}
		table.Append(row)
	}

	table.Render()
}

// RenderScenarios writes one row per stress scenario
func RenderScenarios(w io.Writer, results []ScenarioResult) {
	table := newTable(w, []string{"Scenario", "Value", "P&L"})
	for _, r := range results {
		table.Append([]string{r.Shock.Name, money(r.Value), money(r.PnL)})
	}
	table.Render()
}
