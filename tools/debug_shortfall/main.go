package main

import (
	"context"
	"fmt"
	"os"

	calc "github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/config"
	"github.com/shopspring/decimal"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: debug_shortfall <config-file>")
		return
	}
	p := config.NewInputParser()
	cfg, err := p.LoadFromFile(os.Args[1])
	if err != nil {
		panic(err)
	}
	hdm := calc.NewHistoricalDataManager(cfg.Data)
	if err := hdm.LoadAllData(); err != nil {
		panic(err)
	}
	in, err := hdm.Inputs()
	if err != nil {
		panic(err)
	}
	res, err := calc.NewCalculationEngine().RunScenario(context.Background(), cfg, in)
	if err != nil {
		panic(err)
	}
	rows := res.Fund.Rows
	if len(rows) == 0 {
		fmt.Println("no fund rows")
		return
	}

	fmt.Println("Index,Date,Target,Real,Gap,Principal,Contribution,CumulativeContribution")
	cum := decimal.Zero
	for i, r := range rows {
		bal, principal := decimal.Zero, decimal.Zero
		if r.Real != nil {
			bal = *r.Real
		}
		if r.Principal != nil {
			principal = *r.Principal
		}
		contribution := principal.Mul(decimal.NewFromInt(r.Workers))
		cum = cum.Add(contribution)
		fmt.Printf("%d,%s,%s,%s,%s,%s,%s,%s\n", i, r.Month,
			r.Target.StringFixed(0), bal.StringFixed(0), r.Target.Sub(bal).StringFixed(0),
			principal.StringFixed(0), contribution.StringFixed(2), cum.StringFixed(0))
	}

	for _, r := range rows {
		if r.Real != nil && r.Real.GreaterThanOrEqual(r.Target) {
			fmt.Printf("\nFully funded from: %s\n", r.Month)
			return
		}
	}
	fmt.Printf("\nFully funded from: never (final fund ratio %.4f)\n", float64(res.Summary.FinalFundRatio))
}
