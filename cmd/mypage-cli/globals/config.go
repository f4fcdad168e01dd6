package globals

import (
	"mypage-client/internal/notify"
	"mypage-client/lib/configutil"
	"mypage-client/lib/sessionstore"
	"os"
)

type Config struct {
	Username         string              `json:"username"`
	Password         string              `json:"password"`
	Session          sessionstore.Config `json:"session"`
	CloudflareBypass bool                `json:"cloudflare_bypass"`
	TimeoutSeconds   int                 `json:"timeout_seconds"`
	Smtp             notify.SmtpConfig   `json:"smtp"`
	NotifyTo         string              `json:"notify_to"`
}

// ReadConfig reads the config file, the MYPAGE_USERNAME and MYPAGE_PASSWORD
// environment variables take precedence over it. A missing file is fine as
// long as the credentials come from the environment.
func ReadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if username, ok := os.LookupEnv("MYPAGE_USERNAME"); ok {
		config.Username = username
	}
	if password, ok := os.LookupEnv("MYPAGE_PASSWORD"); ok {
		config.Password = password
	}
	return config, nil
}
