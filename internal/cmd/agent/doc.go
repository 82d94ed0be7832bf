// Package agentrun hosts the CLI entrypoints for running the agent: a
// long-lived demo emitter and a one-shot send used to smoke-test a collector
// endpoint.
package agentrun
