// Package config loads lineage configuration with viper from defaults, an
// optional YAML file and LINEAGE_* environment variables.
//
// # Configuration File
//
//	definitions: ./definitions
//	log:
//	  level: info          # debug, info, warn, error
//	  format: json         # text, json
//	engine:
//	  metrics_enabled: true
//	  max_concurrency: 0   # 0 runs every rule in its own goroutine
//	checker:
//	  timeout: 30s
//	  cache_size: 1024     # 0 disables result caching
//	  cache_ttl: 10m
//	  matrix_workers: 4
//	migration:
//	  max_candidate_paths: 10000
//	audit:
//	  dir: /var/log/lineage/audit
//	  max_size_mb: 100
//	  max_files: 10
//	matrix:
//	  - entity_type: Order
//	    from: 1.0.0
//	    to: [1.1.0, 2.0.0]
//
// Nested keys map to environment variables with underscores:
//
//	LINEAGE_LOG_LEVEL=debug
//	LINEAGE_CHECKER_TIMEOUT=5s
//
// # Usage Example
//
//	loader := config.NewLoader("lineage.yaml", logger)
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.ApplyMatrix(calculator, nil); err != nil {
//		log.Fatal(err)
//	}
//
//	loader.Watch(func(previous, current *config.Config) {
//		_ = current.ApplyMatrix(calculator, previous)
//	})
package config
