// Package config handles loading and validating the bridge simulator configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with BRIDGESIM_* environment variables
//   - Validation of required fields
//   - Resolving which protocol generation to serve
//
// A missing configuration file is not an error; the simulator runs on its
// built-in defaults, which describe a bridge recent enough to speak CLIP v2.
//
// Usage:
//
//	cfg, err := config.Load("configs/bridgesim.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.ResolveGeneration())
package config
