package config

import "os"

func IsDebug() bool {
	return os.Getenv("DISTILL_DEBUG") == "1"
}
