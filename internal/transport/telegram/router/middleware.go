package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	kit "animebot/internal/transport"
	logx "animebot/pkg/logx"
)

var ErrForbidden = errors.New("forbidden")

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					req.Logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.Stack(string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			d := time.Since(start)

			fields := []logx.Field{logx.Duration("dur", d)}
			switch {
			case errors.Is(err, ErrForbidden):
				req.Logger.Info("request denied", fields...)
			case err != nil:
				req.Logger.Warn("request failed", append(fields, logx.Err(err))...)
			case d >= 750*time.Millisecond:
				// slow successful requests stay visible at INFO
				req.Logger.Info("request ok", fields...)
			default:
				req.Logger.Debug("request ok", fields...)
			}
			return err
		}
	}
}

// MWAccess enforces cmd access before the handler runs and tells the user
// when they are turned away.
func MWAccess(access Access, owners []int64) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if access == AccessEveryone {
				return next(ctx, req)
			}
			ok, err := isAdmin(ctx, req, owners)
			if err != nil {
				req.Logger.Warn("admin check failed", logx.Err(err))
			}
			if !ok {
				_ = req.Reply(ctx, "⛔ This command is for chat administrators only.", nil)
				return ErrForbidden
			}
			return next(ctx, req)
		}
	}
}

func isAdmin(ctx context.Context, req *Request, owners []int64) (bool, error) {
	if slices.Contains(owners, req.FromID) {
		return true, nil
	}
	if req.Message != nil && !req.Message.IsGroup {
		return true, nil
	}
	ac, ok := req.Adapter.(kit.AdminChecker)
	if !ok {
		return false, nil
	}
	return ac.IsChatAdmin(ctx, req.Chat.ChatID, req.FromID)
}
