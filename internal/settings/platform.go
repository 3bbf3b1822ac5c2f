package settings

import (
	"runtime"

	lua "github.com/yuin/gopher-lua"
)

// injectPlatformTable publishes a read-only `platform` global so settings
// can branch on the host: platform.os, platform.arch, the is_* booleans,
// and platform.when(condition, value) which yields value or nil.
func injectPlatformTable(L *lua.LState) error {
	table := L.NewTable()

	L.SetField(table, "os", lua.LString(runtime.GOOS))
	L.SetField(table, "arch", lua.LString(runtime.GOARCH))
	L.SetField(table, "is_linux", lua.LBool(runtime.GOOS == "linux"))
	L.SetField(table, "is_macos", lua.LBool(runtime.GOOS == "darwin"))
	L.SetField(table, "is_windows", lua.LBool(runtime.GOOS == "windows"))
	L.SetField(table, "is_amd64", lua.LBool(runtime.GOARCH == "amd64"))
	L.SetField(table, "is_arm64", lua.LBool(runtime.GOARCH == "arm64"))

	L.SetField(table, "when", L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		if cond {
			L.Push(L.Get(2))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))

	L.SetGlobal("platform", makeReadOnly(L, table))
	return nil
}

// makeReadOnly wraps a table in a proxy whose metatable forwards reads and
// raises on any write, so settings code cannot spoof platform facts.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
