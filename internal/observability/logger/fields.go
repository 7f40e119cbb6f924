package logger

import (
	"time"

	"go.uber.org/zap"
)

// HTTP fields.

func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// Domain fields.

func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

func CitizenID(v string) zap.Field {
	return zap.String("citizen_id", v)
}

func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

func GrantType(v string) zap.Field {
	return zap.String("grant_type", v)
}

func Scopes(v []string) zap.Field {
	return zap.Strings("scopes", v)
}

// System fields.

func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer identifies the layer emitting the entry (controller, service, store).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

func String(key, v string) zap.Field {
	return zap.String(key, v)
}

func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
