package deploytpl

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Render configuration files from templates"
	MsgRenderShort     = "Print a transformed template"
	MsgGenerateShort   = "Generate every file in the files manifest"
	MsgChangedShort    = "List files whose content changed in the last run"
	MsgModifiedShort   = "List generated files edited since they were written"
	MsgWatchShort      = "Report edits to generated files as they happen"
	MsgUnsecuredShort  = "List files with looser permissions than the protection level"
	MsgInitConfigShort = "Print a commented default configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgChangedTitle   = "Changed files:"
	MsgNoChanged      = "No changed files."
	MsgModifiedTitle  = "Edited since generation:"
	MsgNoModified     = "No generated file was edited."
	MsgUnsecuredTitle = "Files exceeding the '%s' protection level:"
	MsgNoUnsecured    = "All files match the protection level."
	MsgNoWatched      = "No generated files to watch."
	MsgWatching       = "Watching %d file(s), press Ctrl-C to stop\n"
	MsgWatchEvent     = "%s %s %s\n"
	MsgConfigWritten  = "Wrote %s\n"
	MsgRecordWritten  = "Configuration recorded in %s\n"
	MsgKeystoreStaged = "TLS keystore staged at %s\n"

	// Error messages
	MsgErrLoadConfig   = "failed to load configuration: %w"
	MsgErrGenerate     = "%d file(s) could not be generated"
	MsgErrNoTemplate   = "the template pattern is required"
	MsgErrConfigExists = "%s already exists"

	// Flag descriptions
	MsgFlagVerbose            = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig             = "Configuration file, TOML or YAML (repeatable, later files win)"
	MsgFlagHost               = "Host to generate for (default: this machine's host name)"
	MsgFlagService            = "Service on the host, enables SERVICE placeholders"
	MsgFlagProperty           = "Fixed property [file:]key[+|~]=value (repeatable)"
	MsgFlagTemplateSearchPath = "Comma separated template directories searched first"
	MsgFlagNoColor            = "Disable colored output"
	MsgFlagOut                = "Also write the result to this file, relative to the prepare directory"
	MsgFlagMask               = "Mask passwords in the output"
	MsgFlagNoRecord           = "Do not write the configuration record"
	MsgFlagNoSecurity         = "Do not generate missing security files"
	MsgFlagLevel              = "Protection level to audit against (default: file_protection_level)"
	MsgFlagWrite              = "Write to the user config directory instead of stdout"
)

// Long messages
const (
	MsgRootLong = `deploytpl renders configuration files from templates for one host or
service of a deployment.

Templates are looked up in the template search path, then in the shared
templates directory under home_directory, then in prepare_directory. Lines
may hold @{...} placeholders and fixed properties given with --property
replace, append to or rewrite values on their way out.`

	MsgRenderLong = `Render resolves the template pattern, transforms every line and prints
the result. With --out the result is also written and tracked like any
generated file.`

	MsgRenderExample = `  deploytpl render tungsten-replicator/samples/conf/replicator.properties.tpl
  deploytpl render my.cnf.tpl --host db1 --property port=3307
  deploytpl render svc.tpl --service alpha --mask-passwords`

	MsgGenerateLong = `Generate renders every entry of the files manifest in order. A failing
entry is reported and the others are still generated; files already written
stay on disk. Changed files are listed in .changedfiles and every generated
file is recorded in .watchfiles inside the prepare directory.`

	MsgGenerateExample = `  deploytpl generate --config deployment.toml
  deploytpl generate --config base.toml --config db1.yaml --host db1`

	MsgCompletionLong = `To load completions:

Bash:
  $ source <(deploytpl completion bash)

Zsh:
  $ deploytpl completion zsh > "${fpath[1]}/_deploytpl"

Fish:
  $ deploytpl completion fish | source

PowerShell:
  PS> deploytpl completion powershell | Out-String | Invoke-Expression`
)

// MsgUsageTemplate is the cobra usage template.
const MsgUsageTemplate = `{{boldUpper "usage:"}}{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

{{bold "Aliases:"}}
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

{{bold "Examples:"}}
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{range $group := .Groups}}

{{bold .Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

{{bold "Flags:"}}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

{{bold "Global Flags:"}}
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}
`
