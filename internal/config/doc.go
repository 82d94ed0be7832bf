// Package config resolves the agent's configuration.
//
// Resolution happens once at startup: caller-supplied overrides are merged
// over built-in defaults (Default), optionally preceded by a JSON config file
// (Load) and a WATCHLOG_* environment overlay (FromEnv) when running as the
// CLI tool. The resolved Config is read-only afterwards, with two exceptions:
// the route manifest and the path normalizer may be bound late, after the
// pipeline has started, to support hosts whose routing table is only known
// after an async import.
package config
