// Package config loads and validates the engine's YAML configuration:
// image path and table capacities, logging, and the domain-stack
// collaborators (externalfs, retry, circuit, metrics, health). Precedence
// is defaults, then a YAML file via LoadFromFile, then environment
// variables via LoadFromEnv, mirroring the teacher's layered config model
// without the cache/write-buffer/TLS sections that have no UFS analog.
package config
