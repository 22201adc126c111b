package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context and an optional transaction into repos.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx}
}
