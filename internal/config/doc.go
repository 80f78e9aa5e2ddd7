// Package config reads the runtime settings of the programs from the
// environment and the optional YAML roster used by the multi-provider chat.
//
// Values are read once at startup. A .env file in the working directory is
// loaded by each command before FromEnv runs.
package config
