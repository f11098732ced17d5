package sys

// Log lines. User-facing text lives in the i18n catalogs.
const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad  = "Failed to load config: %v"
	MsgConfigMissingToken  = "DISCORD_TOKEN is not set in .env file"
	MsgConfigMissingKey    = "%s is required"
	MsgConfigInvalidKey    = "%s must be a %s: %v"
	MsgConfigReloaded      = "Configuration reloaded"
	MsgDatabaseInitSuccess = "Database initialized successfully"
	MsgDatabaseTableError  = "Failed to create table: %w"
	MsgDatabasePragmaError = "Failed to set pragma %s: %w"
	MsgDatabaseMigrate     = "Applied migration: %s"
	MsgSettingsLoaded      = "Loaded settings for %d guilds"
	MsgDaemonStarting      = "Starting..."
	MsgPresenceRotated     = "Presence set to %q (next in %v)"
	MsgPresenceFail        = "Failed to update presence: %v"
	MsgBotStarting         = "Starting %s..."
	MsgBotReady            = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown         = "Shutting down %s..."
	MsgBotRestarting       = "Restarting %s..."
	MsgBotKillingOld       = "Killing running instance... (PID: %d)"
	MsgBotKillFail         = "Failed to kill old instance: %v"
	MsgBotOldTerminated    = "Old instance terminated."
	MsgBotPIDWriteFail     = "Failed to write PID file: %v"
	MsgBotRegisterFail     = "Command registration failed: %v"

	// --- Command Loader & Registry ---
	MsgLoaderSyncCommands   = "Syncing %s commands..."
	MsgLoaderSyncSkipped    = "Commands unchanged, skipping registration"
	MsgLoaderTransition     = "[TRANSITION] Switching from %s to %s mode."
	MsgLoaderCleanup        = "[CLEANUP] Removing commands from previous dev guild: %s"
	MsgLoaderDevStarting    = "[DEV] Registering %d commands to guild: %s"
	MsgLoaderDevFail        = "[DEV] Registration failed: %w"
	MsgLoaderDevGlobalClear = "[DEV] Global clear skipped (likely rate limited): %v"
	MsgLoaderProdStarting   = "[PROD] Registering %d commands globally..."
	MsgLoaderProdFail       = "[PROD] Global registration failed: %w"
	MsgLoaderPanicRecovered = "Panic recovered in handler: %v"

	// --- Commands ---
	MsgCommandInvoked      = "/%s by %s in guild %s"
	MsgCommandFailed       = "Command %s failed [%s]: %v"
	MsgCommandPanicked     = "Command %s panicked [%s]: %v"
	MsgCommandReplyFail    = "Failed to reply to %s: %v"
	MsgCommandStatFail     = "Failed to record usage of %s: %v"
	MsgCommandReportFail   = "Failed to report error %s to owner %s: %v"
	MsgCommandRateLimited  = "User %s is rate limited"
	MsgSessionRestartBy    = "Restart commanded by user %s (%s)"
	MsgSessionReloadBy     = "Config reload commanded by user %s (%s)"
	MsgModerationPurged    = "Purged %d messages in channel %s"
	MsgModerationPurgeFail = "Failed to purge channel %s: %v"

	// --- Music & Voice ---
	MsgVoiceJoining       = "Joining voice channel %s in guild %s"
	MsgVoiceJoinFail      = "Failed to join voice channel %s: %v"
	MsgVoiceLeft          = "Left voice channel in guild %s"
	MsgVoiceDisconnected  = "Disconnected from voice in guild %s"
	MsgVoiceChannelEmpty  = "Voice channel in guild %s is empty"
	MsgVoiceTranscodeFail = "Transcoding failed: %v"
	MsgVoiceSeekFail      = "SeekFrame failed: %v"
	MsgSearchFallback     = "Search for %q failed on YouTube, trying YouTube Music: %v"
	MsgSpotifyDisabled    = "Spotify credentials missing, Spotify links are disabled"
	MsgSpotifySkipped     = "Skipping Spotify item without track data at offset %d"
)
