package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `client_id = "bridge.local"
queue_capacity = 256
enqueue_policy = "block"
enqueue_timeout = "5s"
write_timeout = "15s"
drain_on_stop = true
output = ""
admin_listen = "127.0.0.1:7020"
cors_origins = ["http://localhost:3000"]
log_level = "info"
`
