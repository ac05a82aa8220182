package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// TODO: Support configuring from cli flags and configuration files too.

// General application level configuration.
type coreSettings struct {
	Debug bool `envDefault:"false"`

	DBURI string `env:"DB_URI" envDefault:"file:cursorkeep.sqlite3"`
	// Connection pool bounds, the min and max connections kept around.
	DBMinConns int `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConns int `env:"DB_MAX_CONNS" envDefault:"5"`
	// How many times connecting to the database is attempted before
	// giving up.
	DBConnectRetries int `env:"DB_CONNECT_RETRIES" envDefault:"3"`

	LogFile string `env:"LOG_FILE" envDefault:"cursorkeep.log"`
}

// Settings related to the upstream service the accounts belong to.
type serviceSettings struct {
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://www.cursor.com"`
	// Timeout on each individual request during a refresh.
	RequestTimeoutSeconds int `env:"REQUEST_TIMEOUT" envDefault:"10"`

	// The default domain new account emails are generated under.
	Domain string `env:"DOMAIN"`

	// The state file holding the editor's telemetry identifiers. Only
	// used by the machine id reset operation.
	MachineStatePath string `env:"MACHINE_STATE_PATH,expand" envDefault:"${HOME}/.config/Cursor/User/globalStorage/storage.json"`

	// Shell command invoked to register a fresh account. It receives
	// EMAIL and PASSWORD in its environment and prints the session
	// token on stdout.
	RegisterCommand string `env:"REGISTER_CMD"`
}

// Settings related to flat file backups.
type backupSettings struct {
	Dir string `env:"BACKUP_DIR" envDefault:"env_backups"`
	// The .env file synced into the database on startup.
	EnvFile string `env:"ENV_FILE" envDefault:".env"`
}

func init() {
	if err := env.Parse(&Core); err != nil {
		panic(fmt.Sprintf("could not parse core configuration: %v", err))
	}

	if err := env.Parse(&Service); err != nil {
		panic(fmt.Sprintf("could not parse service configuration: %v", err))
	}

	if err := env.Parse(&Backup); err != nil {
		panic(fmt.Sprintf("could not parse backup configuration: %v", err))
	}
}

// While it would be nicer to not have global references to these settings,
// having them be global makes our life slightly easier for now.
var Core coreSettings
var Service serviceSettings
var Backup backupSettings
