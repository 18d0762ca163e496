package config_test

import (
	"fmt"
	"log"

	"github.com/kjayal/clientvault/config"
)

func ExampleLoad() {
	// Load with defaults only (no config file)
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Port: %d, Database: %s\n", cfg.Server.Port, cfg.Database.Type)
	// Output: Port: 5810, Database: sqlite
}
