// Package config loads and merges nodereview configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (NODEREVIEW_PROVIDER, NODEREVIEW_MODEL, NODEREVIEW_FAIL_ON, etc.)
//  3. Config file ($XDG_CONFIG_HOME/nodereview/config.yaml), with ${VAR} and
//     ${VAR:-default} references expanded before parsing
//  4. Built-in defaults
//
// The provider credential is read once, at [Load] time, from the variable
// named by provider.apiKeyEnv (or the provider's default such as
// GROQ_API_KEY). It is carried in memory only and never saved.
package config
