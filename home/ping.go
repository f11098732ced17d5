package home

import (
	"time"

	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "ping",
		Description: "Check the bot's latency",
		Bot:         botText,
		Handler:     handlePing,
	})
}

func handlePing(ctx *sys.Context) (*sys.Reply, error) {
	gateway := ctx.Client.Gateway.Latency()
	rtt := time.Since(ctx.Created)
	return ctx.Reply("ping", sys.P{
		"gateway": gateway.Round(time.Millisecond).String(),
		"rtt":     rtt.Round(time.Millisecond).String(),
	}), nil
}
