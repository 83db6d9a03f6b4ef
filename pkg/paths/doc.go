// Package paths locates the per-user directories deploytpl reads from.
//
// It follows the XDG Base Directory specification:
//
//   - Config: $XDG_CONFIG_HOME/deploytpl (config.toml or config.yaml)
//   - Data: $XDG_DATA_HOME/deploytpl (templates shared by every deployment)
//   - State: $XDG_STATE_HOME/deploytpl (log file)
//
// DEPLOYTPL_CONFIG_DIR and DEPLOYTPL_DATA_DIR override the first two.
package paths
