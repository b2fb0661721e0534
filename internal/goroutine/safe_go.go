package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/atelier-backend/internal/logger"
)

// SafeGo запускает функцию в горутине с перехватом panic.
// Используется для фоновых отправок, падение которых не должно
// ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и перехватом panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		log := logger.Log
		if log == nil {
			log = logrus.StandardLogger()
		}
		log.WithFields(logrus.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("panic в фоновой горутине")
	}
}
