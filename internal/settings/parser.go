package settings

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ParseError is a settings parsing failure with a user-facing message and
// the raw Lua detail kept separate.
type ParseError struct {
	Message string
	Detail  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// FormatError renders a settings error for display. Verbose mode includes
// the raw Lua detail; otherwise the stack traceback is trimmed off.
func FormatError(err error, verbose bool) string {
	parseErr, ok := err.(*ParseError)
	if !ok {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}

// Parse evaluates settings Lua source in the sandbox and extracts the
// global steamshelf table.
func Parse(luaCode string) (*Settings, error) {
	L := newSandboxedVM()
	defer L.Close()

	if err := injectPlatformTable(L); err != nil {
		return nil, fmt.Errorf("inject platform table: %w", err)
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{Message: "Lua syntax error", Detail: err.Error()}
	}

	return extractSettings(L)
}

func extractSettings(L *lua.LState) (*Settings, error) {
	rootVal := L.GetGlobal("steamshelf")
	if rootVal.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'steamshelf' table",
			Detail:  fmt.Sprintf("expected table, got %s", rootVal.Type()),
		}
	}
	root := rootVal.(*lua.LTable)

	s := &Settings{}

	if v := root.RawGetString("app_id"); v.Type() == lua.LTString {
		s.AppID = v.String()
	}
	if v := root.RawGetString("install_root"); v.Type() == lua.LTString {
		s.InstallRoot = v.String()
	}
	if v := root.RawGetString("username"); v.Type() == lua.LTString {
		s.Username = v.String()
	}

	if v := root.RawGetString("downloader"); v.Type() == lua.LTTable {
		dl := v.(*lua.LTable)
		if pathVal := dl.RawGetString("path"); pathVal.Type() == lua.LTString {
			s.DownloaderPath = pathVal.String()
		}
		if maxVal := dl.RawGetString("max_downloads"); maxVal.Type() == lua.LTNumber {
			s.MaxDownloads = int(lua.LVAsNumber(maxVal))
		}
	}

	if v := root.RawGetString("depot_priority"); v.Type() == lua.LTTable {
		v.(*lua.LTable).ForEach(func(_, value lua.LValue) {
			// Platform conditionals (platform.when) leave nil holes; skip
			// them and any non-string entries.
			if value.Type() != lua.LTString {
				return
			}
			s.DepotPriority = append(s.DepotPriority, value.String())
		})
	}

	if err := s.Validate(); err != nil {
		return nil, &ParseError{Message: "settings validation failed", Detail: err.Error()}
	}

	s.ApplyDefaults()
	return s, nil
}
