package home

import (
	"time"

	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "reload",
		Description: "Reload the configuration from the environment (Owner only)",
		Owner:       true,
		Ephemeral:   true,
		Handler:     handleReload,
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "restart",
		Description: "Restart the bot (Owner only)",
		Aliases:     []string{"reboot"},
		Owner:       true,
		Ephemeral:   true,
		Handler:     handleRestart,
	})
}

func handleReload(ctx *sys.Context) (*sys.Reply, error) {
	sys.LogWarn(sys.MsgSessionReloadBy, ctx.UserName, ctx.UserID)
	if _, err := sys.ReloadConfig(); err != nil {
		return nil, ctx.Fail("reload.failed", sys.P{"error": err.Error()})
	}
	return ctx.Reply("reload.done", nil), nil
}

func handleRestart(ctx *sys.Context) (*sys.Reply, error) {
	sys.LogWarn(sys.MsgSessionRestartBy, ctx.UserName, ctx.UserID)
	// Let the reply reach Discord before the shutdown starts.
	time.AfterFunc(1500*time.Millisecond, sys.RequestRestart)
	return ctx.Reply("restart", nil), nil
}
