package depotcli

import "strings"

// The downloader's output wording has shifted across releases, so nothing
// here matches a single literal. Each detector scans a list of known
// substrings, lowercased.

var emailGuardPhrases = []string{
	"auth code sent to the email",
	"steam guard code from your email",
	"enter the authentication code sent to your email",
}

var mobileGuardPhrases = []string{
	"2 factor auth code from your authenticator",
	"confirm the login in the steam mobile app",
	"two-factor code from your mobile",
	"steam mobile app to confirm",
}

var loginSuccessPhrases = []string{
	"logging in user",
	"logged in",
	"login successful",
	"got appinfo",
	"got session token",
}

var loginFailurePhrases = []string{
	"login failed",
	"invalid password",
	"invalidpassword",
	"access denied",
	"accessdenied",
	"ratelimitexceeded",
	"rate limit exceeded",
	"account logon denied",
}

var conflictPhrases = []string{
	"steam is running",
	"platform client running",
	"another instance of steam",
	"please close steam",
}

var completionPhrases = []string{
	"download complete",
	"total downloaded",
	"done!",
}

// detectGuardPrompt classifies a line as a second-factor challenge.
func detectGuardPrompt(line string) (GuardType, bool) {
	lower := strings.ToLower(line)
	for _, phrase := range mobileGuardPhrases {
		if strings.Contains(lower, phrase) {
			return GuardMobile, true
		}
	}
	for _, phrase := range emailGuardPhrases {
		if strings.Contains(lower, phrase) {
			return GuardEmail, true
		}
	}
	return GuardNone, false
}

func containsAny(line string, phrases []string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
