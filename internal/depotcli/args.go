package depotcli

import (
	"fmt"
	"strconv"
)

// maskValue replaces credential material in any diagnostic string.
const maskValue = "*****"

// sessionArgs describes one downloader invocation. Arguments are always
// passed to the child as a list; nothing here is ever joined into a shell
// string.
type sessionArgs struct {
	AppID        string
	BranchKey    string // empty for the default/public branch
	Username     string
	Password     string
	InstallDir   string
	MaxDownloads int
	ManifestOnly bool
}

func (a sessionArgs) validate() error {
	if a.AppID == "" {
		return fmt.Errorf("app id is required")
	}
	if a.Username == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

// build returns the downloader argument list. The default branch omits the
// branch flag entirely; the downloader treats its presence as a request for
// a named beta branch even when the value is "public".
func (a sessionArgs) build() []string {
	args := []string{
		"-app", a.AppID,
		"-username", a.Username,
		"-password", a.Password,
		"-remember-password",
	}
	if a.BranchKey != "" {
		args = append(args, "-branch", a.BranchKey)
	}
	if a.InstallDir != "" {
		args = append(args, "-dir", a.InstallDir)
	}
	if a.MaxDownloads > 0 {
		args = append(args, "-max-downloads", strconv.Itoa(a.MaxDownloads))
	}
	if a.ManifestOnly {
		args = append(args, "-manifest-only")
	}
	return args
}

// masked returns the argument list with the password value replaced, for
// logging and events.
func (a sessionArgs) masked() []string {
	args := a.build()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-password" {
			args[i+1] = maskValue
		}
	}
	return args
}
