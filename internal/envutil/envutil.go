package envutil

import (
	"os"
	"strings"
)

// IsDev checks if we're running in development mode, where plain http
// base URLs are accepted
func IsDev() bool {
	env := strings.ToLower(os.Getenv("LOGIN_FRONT_ENV"))
	return env == "development" || env == "dev"
}
