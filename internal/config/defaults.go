package config

const (
	defaultDataDir                    = "~/.local/share/pigeonhole"
	defaultLogDir                     = "~/.local/share/pigeonhole/logs"
	defaultMailboxDir                 = "~/.local/share/pigeonhole/mail"
	defaultMailboxID                  = "inbox"
	defaultIdentificationThreshold    = 0.6
	defaultCategoryThreshold          = 0.5
	defaultExactFuzzyThreshold        = 0.9
	defaultPartialThreshold           = 0.7
	defaultReviewConfidence           = 0.2
	defaultFallbackCategoryConfidence = 0.3
	defaultBatchSize                  = 10
	defaultEmailConcurrency           = 4
	defaultAttachmentConcurrency      = 2
	defaultAttachmentTimeoutSeconds   = 120
	defaultLookBackDays               = 7
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Mailbox: Mailbox{
			Dir:            defaultMailboxDir,
			DefaultMailbox: defaultMailboxID,
		},
		Matching: Matching{
			IdentificationThreshold:    defaultIdentificationThreshold,
			CategoryThreshold:          defaultCategoryThreshold,
			ExactFuzzyThreshold:        defaultExactFuzzyThreshold,
			PartialThreshold:           defaultPartialThreshold,
			ReviewConfidence:           defaultReviewConfidence,
			FallbackCategoryConfidence: defaultFallbackCategoryConfidence,
		},
		Processing: Processing{
			BatchSize:             defaultBatchSize,
			EmailConcurrency:      defaultEmailConcurrency,
			AttachmentConcurrency: defaultAttachmentConcurrency,
			AttachmentTimeout:     defaultAttachmentTimeoutSeconds,
			LookBackDays:          defaultLookBackDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
