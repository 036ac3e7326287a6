package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/internal/output"
	"github.com/rpgo/trust-solvency/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: inspect_run <database> [run-id]")
		return
	}
	ctx := context.Background()

	st, err := store.Open(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	id := ""
	if len(os.Args) > 2 {
		id = os.Args[2]
	} else {
		runs, err := st.ListRuns(ctx, 1)
		if err != nil {
			log.Fatal(err)
		}
		if len(runs) == 0 {
			fmt.Println("no runs saved")
			return
		}
		id = runs[0].ID
	}

	result, err := st.LoadRun(ctx, id)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("=== RUN %s ===\n", result.RunID)
	fmt.Printf("Name: %s\n", result.Name)
	fmt.Printf("Created: %s\n", result.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Fund rows: %d\n", len(result.Fund.Rows))
	fmt.Printf("Assumptions: %d\n", len(result.Assumptions))

	nullRatios := 0
	for _, r := range result.Fund.Rows {
		for _, ratio := range []domain.Ratio{r.FundRatio, r.PrincipalRatio, r.TargetFundRatio, r.RealFundRatio} {
			if !ratio.IsFinite() {
				nullRatios++
			}
		}
	}
	fmt.Printf("Undefined ratios: %d\n", nullRatios)

	for i, snap := range output.YearlySnapshots(result.Fund) {
		if i >= 3 {
			break
		}
		fmt.Printf("  %d: balance=%s target=%s fund ratio=%s\n",
			snap.Year, output.FormatOptionalBalance(snap.Real), output.FormatBalance(snap.Target),
			output.FormatPercentage(snap.FundRatio))
	}

	for _, name := range []string{"markdown", "html"} {
		data, err := output.GetFormatterByName(name).Format(result)
		if err != nil {
			log.Fatalf("%s: %v", name, err)
		}
		fmt.Printf("%s report: %d bytes\n", name, len(data))
	}
}
