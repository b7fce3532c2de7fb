package rest

import "go.uber.org/fx"

var Module = fx.Module("rest",
	fx.Provide(
		NewMiddleware,
		NewAuthHandler,
		NewFriendHandler,
		NewGroupHandler,
		NewMessageHandler,
		NewManagerHandler,
		NewAvatarHandler,
		NewRouter,
	),
)
