// Package config loads gradbook.json and applies environment overrides.
package config
