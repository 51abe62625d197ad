// Package config handles loading and validating beacon station configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (STATION_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Store tokens and broker passwords should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/station.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Station.ID, cfg.ProvisioningSSID())
package config
