// One-off maintenance commands for the readings database.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/NotCoffee418/home_energy_monitor/pkg/meterdb"
)

func main() {
	nullifyZero := flag.Bool("nullify-zero-energy", false,
		"Rewrite stored zero cumulative counters to NULL")
	flag.Parse()

	if !*nullifyZero {
		flag.Usage()
		os.Exit(1)
	}

	meterdb.InitializeDatabase()
	store := meterdb.NewStore(meterdb.GetDB())

	affected, err := store.NullifyZeroEnergy()
	if err != nil {
		log.Fatalf("Failed to nullify zero energy values: %v", err)
	}
	log.Printf("Nullified %d zero energy values", affected)
}
