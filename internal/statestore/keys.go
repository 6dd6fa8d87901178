package statestore

// Credential keys the target application reads at startup.
const (
	KeySignUpType   = "cursorAuth/cachedSignUpType"
	KeyCachedEmail  = "cursorAuth/cachedEmail"
	KeyAccessToken  = "cursorAuth/accessToken"
	KeyRefreshToken = "cursorAuth/refreshToken"
	KeyUserID       = "cursorAuth/userId"

	// SignUpTypeAuth0 marks the session as a completed login.
	SignUpTypeAuth0 = "Auth_0"
)

// staleKeys are cleared before writing new credentials, so the fresh
// session starts without leftover telemetry, server config, or caches
// from the previous account.
var staleKeys = []string{
	"telemetry.currentSessionDate",
	"telemetry.sessionCount",
	"telemetry.lastSessionDate",
	"telemetry.machineId",
	"telemetry.macMachineId",
	"telemetry.devDeviceId",
	"telemetry.sqmId",

	"cursorai/serverConfig",
	"cursorai/cachedServerConfig",
	"cursorai/lastServerConfigUpdate",
	"cursorai/serverConfigVersion",

	"cursorAuth/oldAccessToken",
	"cursorAuth/oldRefreshToken",
	"cursorAuth/oldEmail",

	"cache/completionCache",
	"cache/suggestionCache",
	"cache/diagnosticsCache",

	"session/lastActiveFile",
	"session/lastOpenedFiles",
	"session/workspaceState",

	"workbench.activity.pinnedViewlets",
	"workbench.panel.markers.hidden",
	"workbench.panel.output.hidden",
}
