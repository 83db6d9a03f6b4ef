package config

// Keys the engine reads directly.
const (
	KeyHomeDirectory       = "home_directory"
	KeyPrepareDirectory    = "prepare_directory"
	KeyTempDirectory       = "temp_directory"
	KeyTemplateSearchPath  = "template_search_path"
	KeyFileProtectionLevel = "file_protection_level"
	KeyTimestamp           = "timestamp"
	KeyFixedProperties     = "fixed_properties"

	KeyEnableTHLSSL         = "repl_enable_thl_ssl"
	KeyEnableRMISSL         = "enable_rmi_ssl"
	KeyJavaKeystorePassword = "java_keystore_password"
	KeyJavaTLSKeyLifetime   = "java_tls_key_lifetime"
	KeyJavaTLSEntryAlias    = "java_tls_entry_alias"
	KeyJavaTLSKeystorePath  = "java_tls_keystore_path"
)

// AutoGenerate as a keystore path asks for a generated keystore.
const AutoGenerate = "autogenerate"
