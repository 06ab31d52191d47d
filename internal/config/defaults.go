package config

const (
	defaultStateDir                = "~/.local/share/assetgen"
	defaultHistoryFile             = "history.db"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultMaxAttempts             = 3
	defaultBackoffUnitSeconds      = 1.0
	defaultCheckpointInterval      = 5
	defaultWorkers                 = 1
	defaultBackendName             = BackendPlaceholder
	defaultBackendTimeoutSeconds   = 300
	defaultImageDimension          = 512
	defaultImageStyle              = "educational"
	defaultVoicePreset             = "v2/en_speaker_6"
	defaultEnvFile                 = ".env"
	defaultAPIKeyEnv               = "ASSETGEN_API_KEY"
	defaultBaseURLEnv              = "ASSETGEN_BASE_URL"
	defaultNotifyTimeoutSeconds    = 10
	maxCheckpointIntervalAllowance = 10000
)

// Backend names accepted in [backend].name.
const (
	BackendPlaceholder = "placeholder"
	BackendHTTP        = "http"
	BackendCommand     = "command"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			EnvFile:  defaultEnvFile,
		},
		Generation: Generation{
			MaxAttempts:        defaultMaxAttempts,
			BackoffUnitSeconds: defaultBackoffUnitSeconds,
			CheckpointInterval: defaultCheckpointInterval,
			Workers:            defaultWorkers,
			Resume:             true,
		},
		Backend: Backend{
			Name:           defaultBackendName,
			TimeoutSeconds: defaultBackendTimeoutSeconds,
			ImageWidth:     defaultImageDimension,
			ImageHeight:    defaultImageDimension,
			DefaultStyle:   defaultImageStyle,
			DefaultVoice:   defaultVoicePreset,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
			NotifyOnSuccess:       true,
		},
	}
}
