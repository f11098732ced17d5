package home

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	purgeMax = 100
	// Discord refuses bulk deletes of messages older than two weeks.
	bulkDeleteAge = 14 * 24 * time.Hour
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "purge",
		Description: "Delete recent messages in this channel",
		Aliases:     []string{"clear"},
		Options: []sys.Option{
			{Name: "count", Description: "How many messages to delete", Kind: sys.OptionInt, Required: true},
		},
		Bot:       sys.Requirements{Text: discord.PermissionViewChannel | discord.PermissionReadMessageHistory | discord.PermissionManageMessages},
		User:      sys.Requirements{Text: discord.PermissionManageMessages},
		Ephemeral: true,
		Handler:   handlePurge,
	})
}

// splitPurgeable separates messages that can go in one bulk request from the
// ones that must be deleted individually.
func splitPurgeable(ids []snowflake.ID, now time.Time) (bulk, single []snowflake.ID) {
	bulk, single = lo.FilterReject(ids, func(id snowflake.ID, _ int) bool {
		return now.Sub(id.Time()) < bulkDeleteAge
	})
	if len(bulk) == 1 {
		single = append(single, bulk...)
		bulk = nil
	}
	return bulk, single
}

func handlePurge(ctx *sys.Context) (*sys.Reply, error) {
	count, _ := ctx.Args.Int("count")
	if count < 1 || count > purgeMax {
		return nil, ctx.Fail("purge.range", sys.P{"max": purgeMax})
	}

	// A prefixed invocation also removes the command message itself.
	limit := count
	if ctx.Prefixed {
		limit = min(count+1, purgeMax)
	}

	msgs, err := ctx.Client.Rest.GetMessages(ctx.ChannelID, 0, 0, 0, limit, rest.WithCtx(ctx))
	if err != nil {
		return nil, err
	}
	ids := lo.Map(msgs, func(m discord.Message, _ int) snowflake.ID { return m.ID })
	bulk, single := splitPurgeable(ids, time.Now())

	deleted := 0
	if len(bulk) > 0 {
		if err := ctx.Client.Rest.BulkDeleteMessages(ctx.ChannelID, bulk, rest.WithCtx(ctx)); err != nil {
			sys.LogCommand(sys.MsgModerationPurgeFail, ctx.ChannelID, err)
			return nil, err
		}
		deleted += len(bulk)
	}

	limiter := rate.NewLimiter(rate.Limit(4), 5)
	for _, id := range single {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if err := ctx.Client.Rest.DeleteMessage(ctx.ChannelID, id, rest.WithCtx(ctx)); err != nil {
			sys.LogCommand(sys.MsgModerationPurgeFail, ctx.ChannelID, err)
			continue
		}
		deleted++
	}

	sys.LogCommand(sys.MsgModerationPurged, deleted, ctx.ChannelID)
	return ctx.Reply("purge.done", sys.P{"count": deleted}), nil
}
