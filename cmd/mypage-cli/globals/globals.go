package globals

import (
	"context"
	"mypage-client/internal/chrono"
	"mypage-client/lib/scrapers/mypage"
)

type keyType int

var key keyType

type Value struct {
	Config Config
	Client *mypage.Client
	Time   chrono.TimeAPI
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key).(*Value)
}
