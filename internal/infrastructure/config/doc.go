// Package config handles loading and validating Dspx-Monitor configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (DSPX_SECTION_KEY)
//   - Filling unset secrets from an optional KEY=value secrets file
//   - Validation of required fields
//
// Security Considerations:
//   - The webhook URL is a bearer secret; keep it in the environment or the
//     secrets file, never in the committed YAML
//   - The secrets file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loc, _ := cfg.Location()
package config
