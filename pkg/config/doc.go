// Package config holds the deployment configuration store.
//
// Values live in a tree of string keys addressed by a Path. The tree is
// layered: embedded defaults, then configuration files and DEPLOYTPL_*
// environment variables, then late-bound overrides. Host and service
// specific values sit under hosts/<host>/ and services/<service>/ and a
// scoped Lookup resolves service > host > global.
//
// Every read names a Mode. Raw returns the stored value. Template applies the
// TemplateFunc declared for the key, which is how generated files see
// relocated paths or masked secrets without changing what programmatic
// callers read.
package config
