package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "treasury"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "TREASURY_APP_ENV"
	EnvPort   = "TREASURY_APP_PORT"
	EnvDBDSN  = "TREASURY_DB_DSN"
	EnvDBHost = "TREASURY_DB_HOST"
	EnvDBUser = "TREASURY_DB_USER"
	EnvDBName = "TREASURY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
