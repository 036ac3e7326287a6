package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rpgo/trust-solvency/internal/calculation"
	"github.com/rpgo/trust-solvency/internal/domain"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: print_interpolation <population.csv> <ages, e.g. 20-24> [months]")
		return
	}
	buckets, err := calculation.ReadBucketsCSV(os.Args[1])
	if err != nil {
		panic(err)
	}
	ages, err := domain.ParseAgeRange(os.Args[2])
	if err != nil {
		panic(err)
	}
	months := 24
	if len(os.Args) > 3 {
		if months, err = strconv.Atoi(os.Args[3]); err != nil {
			panic(err)
		}
	}

	table, err := calculation.NewPopulationExpander(nil).Expand(buckets, 0)
	if err != nil {
		panic(err)
	}

	header := "Date"
	for a := ages.From; a <= ages.To; a++ {
		header += "," + a.String()
	}
	fmt.Println(header + ",Sum")
	for i, r := range table.Rows {
		if i >= months {
			break
		}
		row := r.Month.String()
		for a := ages.From; a <= ages.To; a++ {
			row += "," + strconv.FormatInt(r.Counts[a], 10)
		}
		fmt.Println(row + "," + strconv.FormatInt(r.Sum(ages), 10))
	}

	for _, an := range table.Anomalies {
		fmt.Printf("anomaly: %s age %s value %.2f\n", an.Month, an.Age, an.Value)
	}
}
