// Package config loads and validates the relay configuration.
//
// Settings come from a YAML file, then AUDIORELAY_* environment variables
// (optionally seeded from a .env file) override individual fields. Each
// section validates itself. A Watcher reloads the file on change; callers
// decide which reloaded fields take effect live.
package config
