package commands

import (
	"chaldea/sources/dispatcher"

	"go.uber.org/fx"
)

func asCommand(f any) any {
	return fx.Annotate(f, fx.As(new(dispatcher.Command)), fx.ResultTags(`group:"commands"`))
}

func asEvent(f any) any {
	return fx.Annotate(f, fx.As(new(dispatcher.Event)), fx.ResultTags(`group:"events"`))
}

var Module = fx.Module("commands",
	fx.Provide(
		asCommand(NewHelp),
		asCommand(NewAdmin),
		asCommand(NewVIP),
		asCommand(NewUID),
		asCommand(NewPrefix),
		asEvent(NewWelcome),
		asEvent(NewGoodbye),
	),
)
